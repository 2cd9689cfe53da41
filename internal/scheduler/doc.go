// Package scheduler создаёт плановые снимки проектов.
//
// У проекта с snapshot_cron в момент next_snapshot_at появляется анализ
// с trigger=schedule по текущему списку задач. Ключ идемпотентности
// "<project_id>_<unix next_snapshot_at>" не даёт создать снимок дважды,
// если тик повторился после сбоя. Проект с некорректным cron
// отключается, проект без задач только сдвигает next_snapshot_at.
//
// Tick не координирует несколько экземпляров: critpath-scheduler
// вызывает его, только удерживая pg_try_advisory_lock.
package scheduler
