// Package api реализует HTTP API сервиса Critpath.
//
// Поверхности:
//   - /api/v1/analyze — расчёт расписания без сохранения
//   - /api/v1/projects — проекты, их списки задач и плановые снимки
//   - /api/v1/analyses — история анализов
//   - /api/health, /api/tasks, /api/analyze — браузерное приложение
//
// Успешные ответы v1 оборачиваются в {"data": ...}, ошибки —
// в {"error": {"code": ..., "message": ...}}. Ошибки движка
// отдаются как VALIDATION_FAILED или CYCLE_DETECTED с исходным текстом.
//
// Без брокера (Publisher == nil) анализы проектов выполняются
// синхронно через Runner.
package api
