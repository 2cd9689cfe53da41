// Package runner выполняет CPM-анализы, поставленные в очередь.
//
// Жизненный цикл анализа:
//
//	Claim (QUEUED → RUNNING) → engine.Analyze → Update (SUCCEEDED | FAILED) → analysis.completed
//
// Runner не зависит от транспорта: его вызывают воркер (сообщения
// analysis.requested и polling) и API, если брокер не настроен.
package runner
