package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"radwatch/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReadingRepository 辐射读数仓库
// 读数一经写入不再修改（审计数据）
type ReadingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReadingRepository 创建读数仓库
func NewReadingRepository(db *sql.DB, logger *zap.Logger) *ReadingRepository {
	return &ReadingRepository{
		db:     db,
		logger: logger,
	}
}

// CreateReading 写入一条读数
// 写入前做规范化（非有限值/负值归零），并补齐 reading_id 和时间戳
func (r *ReadingRepository) CreateReading(ctx context.Context, reading *models.Reading) error {
	if reading == nil {
		return fmt.Errorf("reading is required")
	}
	if reading.Block == "" || reading.Plant == "" || reading.Area == "" {
		return fmt.Errorf("block, plant and area are required")
	}

	reading.Normalize()
	if reading.ReadingID == "" {
		reading.ReadingID = uuid.New().String()
	}
	if reading.CreatedAt.IsZero() {
		reading.CreatedAt = time.Now()
	}
	if reading.MeasuredAt.IsZero() {
		reading.MeasuredAt = reading.CreatedAt
	}

	query := `
		INSERT INTO readings (
			reading_id,
			submitter_id,
			block,
			plant,
			area,
			area_spec,
			near_value,
			far_value,
			measured_at,
			origin,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		reading.ReadingID,
		reading.SubmitterID,
		reading.Block,
		reading.Plant,
		reading.Area,
		reading.AreaSpec,
		reading.NearValue,
		reading.FarValue,
		reading.MeasuredAt,
		reading.Origin,
		reading.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reading: %w", err)
	}

	return nil
}
