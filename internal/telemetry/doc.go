// Package telemetry — логирование и метрики сервисов critpath.
//
// Логи пишутся через log/slog в JSON (LOG_FORMAT=text для разработки),
// каждая запись помечена именем сервиса. Метрики анализов, HTTP-запросов
// и брокера регистрируются в Prometheus и отдаются на /metrics.
package telemetry
