package worker

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/shaiso/Critpath/internal/mq"
	"github.com/shaiso/Critpath/internal/runner"
)

// handleAnalysisRequested обрабатывает сообщение из очереди analyses.requested.
func (w *Worker) handleAnalysisRequested(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.AnalysisRequestedPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse analysis.requested payload", "error", err)
		return err
	}

	w.logger.Debug("received analysis.requested event",
		"analysis_id", payload.AnalysisID,
		"project_id", payload.ProjectID,
	)

	return w.process(ctx, payload.AnalysisID)
}

// process выполняет анализ через Runner.
//
// Анализ, который уже захвачен другим воркером или удалён вместе
// с проектом, не считается ошибкой: сообщение подтверждается.
func (w *Worker) process(ctx context.Context, analysisID uuid.UUID) error {
	_, err := w.runner.Execute(ctx, analysisID)
	if err == nil {
		return nil
	}

	if errors.Is(err, runner.ErrAnalysisNotFound) || errors.Is(err, runner.ErrAnalysisNotQueued) {
		w.logger.Debug("analysis not processed", "analysis_id", analysisID, "reason", err)
		return nil
	}
	return err
}
