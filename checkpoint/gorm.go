package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/thoughtflow/internal/database"
	"github.com/BaSui01/thoughtflow/search"
)

// ============================================================
// GORM 存储
// ============================================================

// RecordModel 断点记录表。Namespace 区分 方法/模型/文本 组合，多个运行可共用一个库。
type RecordModel struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Namespace   string    `gorm:"size:255;not null;index:idx_ns_example" json:"namespace"`
	RunID       string    `gorm:"size:36;index" json:"run_id"`
	ExampleID   int       `gorm:"not null;index:idx_ns_example" json:"example_id"`
	SubjectID   string    `gorm:"size:64" json:"subject_id"`
	Input       string    `json:"input"`
	FinalOutput string    `json:"final_output"`
	Steps       string    `json:"steps"` // JSON 编码的 []search.StepRecord
	Samples     string    `json:"samples"`
	Parsed      string    `json:"parsed"`
	Correct     bool      `json:"correct"`
	YPred       int       `json:"y_pred"`
	YTrue       int       `json:"y_true"`
	CreatedAt   time.Time `json:"created_at"`
}

func (RecordModel) TableName() string {
	return "tf_checkpoint_records"
}

// GormStore 把记录写入关系库
type GormStore struct {
	pool      *database.PoolManager
	namespace string
	logger    *zap.Logger
}

// NewGormStore 在已有连接池上创建存储并迁移表结构
func NewGormStore(pool *database.PoolManager, namespace string, logger *zap.Logger) (*GormStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.DB().AutoMigrate(&RecordModel{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}
	return &GormStore{
		pool:      pool,
		namespace: namespace,
		logger:    logger.With(zap.String("component", "checkpoint"), zap.String("namespace", namespace)),
	}, nil
}

// OpenGormStore 打开数据库并创建存储，Close 时一并关闭连接池
func OpenGormStore(driver, dsn string, poolCfg database.PoolConfig, namespace string, logger *zap.Logger) (*GormStore, error) {
	pool, err := database.Open(driver, dsn, poolCfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := NewGormStore(pool, namespace, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// Pool 返回底层连接池
func (s *GormStore) Pool() *database.PoolManager { return s.pool }

func (s *GormStore) Load(ctx context.Context) ([]Record, error) {
	var rows []RecordModel
	err := s.pool.DB().WithContext(ctx).
		Where("namespace = ?", s.namespace).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			s.logger.Warn("skipping unreadable checkpoint row", zap.Uint("id", row.ID), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	s.logger.Info("checkpoint loaded", zap.Int("records", len(records)))
	return records, nil
}

func (s *GormStore) Append(ctx context.Context, rec Record) error {
	row, err := fromRecord(s.namespace, rec)
	if err != nil {
		return err
	}
	return s.pool.WithTransactionRetry(ctx, 3, func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
}

// Close 关闭连接池
func (s *GormStore) Close() error {
	return s.pool.Close()
}

func fromRecord(namespace string, rec Record) (RecordModel, error) {
	steps, err := json.Marshal(rec.Steps)
	if err != nil {
		return RecordModel{}, fmt.Errorf("encode steps: %w", err)
	}
	samples, err := encodeOptional(rec.Samples)
	if err != nil {
		return RecordModel{}, fmt.Errorf("encode samples: %w", err)
	}
	parsed, err := encodeOptional(rec.Parsed)
	if err != nil {
		return RecordModel{}, fmt.Errorf("encode parsed labels: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return RecordModel{
		Namespace:   namespace,
		RunID:       rec.RunID,
		ExampleID:   rec.ExampleID,
		SubjectID:   rec.SubjectID,
		Input:       rec.Input,
		FinalOutput: rec.FinalOutput,
		Steps:       string(steps),
		Samples:     samples,
		Parsed:      parsed,
		Correct:     rec.Correct,
		YPred:       rec.YPred,
		YTrue:       rec.YTrue,
		CreatedAt:   createdAt,
	}, nil
}

func (m RecordModel) toRecord() (Record, error) {
	var steps []search.StepRecord
	if m.Steps != "" {
		if err := json.Unmarshal([]byte(m.Steps), &steps); err != nil {
			return Record{}, fmt.Errorf("decode steps: %w", err)
		}
	}
	var samples []search.Candidate
	if m.Samples != "" {
		if err := json.Unmarshal([]byte(m.Samples), &samples); err != nil {
			return Record{}, fmt.Errorf("decode samples: %w", err)
		}
	}
	var parsed []int
	if m.Parsed != "" {
		if err := json.Unmarshal([]byte(m.Parsed), &parsed); err != nil {
			return Record{}, fmt.Errorf("decode parsed labels: %w", err)
		}
	}
	return Record{
		RunID:       m.RunID,
		ExampleID:   m.ExampleID,
		SubjectID:   m.SubjectID,
		Input:       m.Input,
		FinalOutput: m.FinalOutput,
		Steps:       steps,
		Samples:     samples,
		Parsed:      parsed,
		Correct:     m.Correct,
		YPred:       m.YPred,
		YTrue:       m.YTrue,
		CreatedAt:   m.CreatedAt,
	}, nil
}

// encodeOptional 空切片存为空串
func encodeOptional[T any](v []T) (string, error) {
	if len(v) == 0 {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
