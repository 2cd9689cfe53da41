package domain

import (
	"time"

	"github.com/google/uuid"
)

// Project — проект: именованный список задач для CPM-анализа.
//
// Список задач хранится в том виде, в каком его прислал клиент,
// и проверяется только при анализе. Проект может иметь расписание
// плановых снимков (baseline): scheduler по cron-выражению ставит
// анализ в очередь, и история анализов показывает, как менялась
// длительность проекта.
type Project struct {
	// ID — уникальный идентификатор проекта.
	ID uuid.UUID `json:"id"`

	// Name — имя проекта.
	Name string `json:"name"`

	// Tasks — текущий список задач.
	Tasks []TaskRecord `json:"tasks"`

	// SnapshotCron — cron-выражение плановых снимков.
	// Формат: "минуты часы дни месяцы дни_недели", например "0 9 * * 1-5".
	// Пустая строка — снимки выключены.
	SnapshotCron string `json:"snapshot_cron,omitempty"`

	// Timezone — часовой пояс для cron. По умолчанию "UTC".
	Timezone string `json:"timezone"`

	// NextSnapshotAt — время следующего снимка.
	NextSnapshotAt *time.Time `json:"next_snapshot_at,omitempty"`

	// LastSnapshotAt — время последнего снимка.
	LastSnapshotAt *time.Time `json:"last_snapshot_at,omitempty"`

	// LastAnalysisID — ID анализа, созданного последним снимком.
	LastAnalysisID *uuid.UUID `json:"last_analysis_id,omitempty"`

	// CreatedAt — время создания проекта.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// HasSnapshots возвращает true, если для проекта настроены плановые снимки.
func (p *Project) HasSnapshots() bool {
	return p.SnapshotCron != ""
}

// IsSnapshotDue проверяет, пора ли делать снимок.
func (p *Project) IsSnapshotDue(now time.Time) bool {
	if !p.HasSnapshots() || p.NextSnapshotAt == nil {
		return false
	}
	return !now.Before(*p.NextSnapshotAt)
}

// RecordSnapshot записывает информацию о снимке и сдвигает следующий.
func (p *Project) RecordSnapshot(analysisID uuid.UUID, next time.Time) {
	now := time.Now()
	p.LastSnapshotAt = &now
	p.LastAnalysisID = &analysisID
	p.NextSnapshotAt = &next
	p.UpdatedAt = now
}

// DisableSnapshots выключает плановые снимки.
func (p *Project) DisableSnapshots() {
	p.SnapshotCron = ""
	p.NextSnapshotAt = nil
	p.UpdatedAt = time.Now()
}
