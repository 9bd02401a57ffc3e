// Package history keeps a short record of past simulation runs in the
// per-user data directory.
package history

import (
	"fmt"
	"time"

	"github.com/quasilyte/gdata/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// 存储路径常量
const (
	historyObject = "runs"
	// DefaultLimit 保留的最近运行数
	DefaultLimit = 20
)

// RunRecord 一次运行的汇总
type RunRecord struct {
	Scene      string    `yaml:"scene"`
	StartedAt  time.Time `yaml:"startedAt"`
	Ticks      int       `yaml:"ticks"`
	SimSeconds float64   `yaml:"simSeconds"`
	WallMillis int64     `yaml:"wallMillis"`
	PeakActive int       `yaml:"peakActive"`
	Collisions int       `yaml:"collisions"`
	Kills      int       `yaml:"kills"`
	Completed  int       `yaml:"completed"`
}

// RunHistory 运行历史管理器
// manager 为 nil 时只在内存中保存（降级模式）
type RunHistory struct {
	manager *gdata.Manager
	logger  *zap.SugaredLogger
	limit   int
	records map[string][]RunRecord
}

// Open creates the gdata manager for appName and loads its history. When the
// data directory cannot be opened the history falls back to memory and the
// error is logged, not returned.
func Open(appName string, logger *zap.SugaredLogger) *RunHistory {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		logger.Warnw("run history unavailable, keeping it in memory", "error", err)
		m = nil
	}
	return New(m, logger)
}

// New wraps an existing manager; m may be nil.
func New(m *gdata.Manager, logger *zap.SugaredLogger) *RunHistory {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RunHistory{
		manager: m,
		logger:  logger,
		limit:   DefaultLimit,
		records: make(map[string][]RunRecord),
	}
}

// SetLimit changes how many records are kept per scene. Values < 1 are ignored.
func (h *RunHistory) SetLimit(n int) {
	if n > 0 {
		h.limit = n
	}
}

// Persistent reports whether records survive the process.
func (h *RunHistory) Persistent() bool {
	return h.manager != nil
}

// Records 返回某个场景的历史，按时间从旧到新
// 内存中没有时尝试从 gdata 加载，文件损坏时返回错误和空历史
func (h *RunHistory) Records(scene string) ([]RunRecord, error) {
	if recs, ok := h.records[scene]; ok {
		return recs, nil
	}
	recs, err := h.load(scene)
	if err != nil {
		return nil, err
	}
	h.records[scene] = recs
	return recs, nil
}

// Last returns the most recent record of scene.
func (h *RunHistory) Last(scene string) (RunRecord, bool) {
	recs, err := h.Records(scene)
	if err != nil || len(recs) == 0 {
		return RunRecord{}, false
	}
	return recs[len(recs)-1], true
}

// Append 追加一条记录并立即保存
// 超出 limit 时丢弃最旧的记录；历史文件损坏时从空历史重新开始
func (h *RunHistory) Append(rec RunRecord) error {
	recs, err := h.Records(rec.Scene)
	if err != nil {
		h.logger.Warnw("discarding unreadable run history", "scene", rec.Scene, "error", err)
		recs = nil
	}
	recs = append(recs, rec)
	if len(recs) > h.limit {
		recs = append([]RunRecord(nil), recs[len(recs)-h.limit:]...)
	}
	h.records[rec.Scene] = recs
	return h.save(rec.Scene, recs)
}

func (h *RunHistory) load(scene string) ([]RunRecord, error) {
	if h.manager == nil || !h.manager.ObjectPropExists(historyObject, scene) {
		return nil, nil
	}
	data, err := h.manager.LoadObjectProp(historyObject, scene)
	if err != nil {
		return nil, fmt.Errorf("failed to load run history %s: %w", scene, err)
	}
	var recs []RunRecord
	if err := yaml.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run history %s: %w", scene, err)
	}
	return recs, nil
}

func (h *RunHistory) save(scene string, recs []RunRecord) error {
	if h.manager == nil {
		return nil
	}
	data, err := yaml.Marshal(recs)
	if err != nil {
		return fmt.Errorf("failed to marshal run history: %w", err)
	}
	if err := h.manager.SaveObjectProp(historyObject, scene, data); err != nil {
		return fmt.Errorf("failed to save run history %s: %w", scene, err)
	}
	h.logger.Debugw("run history saved", "scene", scene, "records", len(recs))
	return nil
}
