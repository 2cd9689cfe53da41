// Package cli — команды утилиты critpath.
//
// Команды работают с сервером через Client и не импортируют internal/api.
// analyze --offline читает файл задач (JSON или HCL) через internal/taskfile
// и считает расписание локально через internal/engine, без сервера.
//
// Вывод по умолчанию — таблицы lipgloss, критические задачи выделены.
// С --json данные печатаются как JSON в stdout, а сообщения об успехе
// и ошибках идут в stderr, так что вывод можно передать в jq.
//
// Фабрики команд (NewProjectCmd и другие) получают clientFn и outputFn:
// клиент и вывод создаются после разбора флагов --api-url и --json.
package cli
