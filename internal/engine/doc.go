// Package engine содержит CPM-движок (метод критического пути).
//
// Включает:
//   - validate.go — валидация списка задач
//   - parser.go   — разбор JSON в записи задач
//   - graph.go    — граф зависимостей и топологическая сортировка (алгоритм Кана)
//   - schedule.go — прямой и обратный проход: ES, EF, LS, LF, резерв
//   - events.go   — AOA-события, сгруппированные по множеству предшественников
//   - analyze.go  — конвейер целиком
//
// Движок не хранит состояние: каждый вызов Analyze пересчитывает
// результат полностью.
package engine
