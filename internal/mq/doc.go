// Package mq связывает сервисы critpath через RabbitMQ.
//
// API и scheduler публикуют analysis.requested в обменник critpath.analyses,
// worker читает очередь analyses.requested и после анализа публикует
// analysis.completed. Сообщение, обработка которого упала дважды,
// уходит в dlq.analyses через critpath.dlq.
//
// Брокер необязателен: без него анализы забирает polling воркера.
package mq
