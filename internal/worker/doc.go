// Package worker — сервис, выполняющий CPM-анализы в статусе QUEUED.
//
// Анализ попадает в воркер из сообщения analysis.requested или через
// polling БД, который подбирает потерянные сообщения и работает без брокера.
// Дубликаты безопасны: runner захватывает анализ через Claim, и второй
// экземпляр получает ErrAnalysisNotQueued, которое подтверждается как успех.
//
//	w := worker.New(worker.Config{
//	    Analyses:    analysisRepo,
//	    Runner:      runner.New(runnerCfg),
//	    Conn:        mqConn, // nil — только polling
//	    Concurrency: 4,
//	})
//	w.Start(ctx)
//	defer w.Stop()
package worker
