package repository

import (
	"context"
	"database/sql"
	"fmt"

	"radwatch/internal/models"

	"go.uber.org/zap"
)

// ThresholdRepository 阈值配置仓库
// 配置以 (block, plant, area) 为唯一标识，只支持 upsert 和启用/停用，不支持删除
type ThresholdRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewThresholdRepository 创建阈值配置仓库
func NewThresholdRepository(db *sql.DB, logger *zap.Logger) *ThresholdRepository {
	return &ThresholdRepository{
		db:     db,
		logger: logger,
	}
}

const thresholdColumns = `
	block,
	plant,
	area,
	near_limit,
	far_limit,
	severity,
	is_active,
	created_at,
	updated_at
`

// UpsertConfig 按标识插入或更新阈值配置
func (r *ThresholdRepository) UpsertConfig(ctx context.Context, cfg *models.ThresholdConfig) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if cfg.Block == "" || cfg.Plant == "" || cfg.Area == "" {
		return fmt.Errorf("block, plant and area are required")
	}
	if !models.ValidSeverity(cfg.Severity) {
		return fmt.Errorf("invalid severity: %s", cfg.Severity)
	}

	query := `
		INSERT INTO threshold_configs (
			block, plant, area, near_limit, far_limit, severity, is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		ON CONFLICT (block, plant, area)
		DO UPDATE SET near_limit = EXCLUDED.near_limit,
		              far_limit = EXCLUDED.far_limit,
		              severity = EXCLUDED.severity,
		              is_active = EXCLUDED.is_active,
		              updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(ctx, query,
		cfg.Block,
		cfg.Plant,
		cfg.Area,
		cfg.NearLimit,
		cfg.FarLimit,
		cfg.Severity,
		cfg.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert threshold config: %w", err)
	}

	return nil
}

// FindActive 精确查找启用中的阈值配置
func (r *ThresholdRepository) FindActive(ctx context.Context, block, plant, area string) (*models.ThresholdConfig, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM threshold_configs
		WHERE block = $1
		  AND plant = $2
		  AND area = $3
		  AND is_active = TRUE
	`, thresholdColumns)

	cfg, err := r.scanConfig(r.db.QueryRowContext(ctx, query, block, plant, area))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("threshold config (%s, %s, %s): %w", block, plant, area, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find threshold config: %w", err)
	}

	return cfg, nil
}

// ListActive 查询 (block, plant) 下所有启用中的配置
// 按标识升序返回，电站级兜底查找的同分并列依赖这个顺序保证确定性
func (r *ThresholdRepository) ListActive(ctx context.Context, block, plant string) ([]*models.ThresholdConfig, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM threshold_configs
		WHERE block = $1
		  AND plant = $2
		  AND is_active = TRUE
		ORDER BY block, plant, area
	`, thresholdColumns)

	rows, err := r.db.QueryContext(ctx, query, block, plant)
	if err != nil {
		return nil, fmt.Errorf("failed to list threshold configs: %w", err)
	}
	defer rows.Close()

	var configs []*models.ThresholdConfig
	for rows.Next() {
		cfg, err := r.scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan threshold config: %w", err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate threshold configs: %w", err)
	}

	return configs, nil
}

// ListAll 查询全部阈值配置（管理界面用，含停用的）
func (r *ThresholdRepository) ListAll(ctx context.Context) ([]*models.ThresholdConfig, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM threshold_configs
		ORDER BY block, plant, area
	`, thresholdColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list threshold configs: %w", err)
	}
	defer rows.Close()

	var configs []*models.ThresholdConfig
	for rows.Next() {
		cfg, err := r.scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan threshold config: %w", err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate threshold configs: %w", err)
	}

	return configs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *ThresholdRepository) scanConfig(row rowScanner) (*models.ThresholdConfig, error) {
	var cfg models.ThresholdConfig
	err := row.Scan(
		&cfg.Block,
		&cfg.Plant,
		&cfg.Area,
		&cfg.NearLimit,
		&cfg.FarLimit,
		&cfg.Severity,
		&cfg.IsActive,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
