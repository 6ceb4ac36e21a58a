package logs

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"regform-api/internal/util"

	"gorm.io/gorm"
)

type LogService struct {
	DB *gorm.DB
}

func (ls *LogService) Log(log SystemLog, metadata interface{}) error {
	var metaStr *string

	// Convert metadata (map/struct) to JSON string if provided
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			str := string(b)
			metaStr = &str
		}
	}

	newLog := SystemLog{
		Level:     log.Level,
		Service:   log.Service,
		Action:    log.Action,
		Message:   log.Message,
		EventID:   log.EventID,
		FormID:    log.FormID,
		Metadata:  metaStr,
		CreatedAt: time.Now(),
	}

	return ls.DB.Create(&newLog).Error
}

func (ls *LogService) GetLogs(input LogFilterInput) ([]SystemLog, LogAggregates, int64, int, error) {
	// Defaults
	if input.Page <= 0 {
		input.Page = 1
	}
	if input.PageSize <= 0 || input.PageSize > 100 {
		input.PageSize = 20
	}

	base := ls.DB.Model(&SystemLog{})

	// Default: last 30 days if no dates
	if input.StartDate == nil && input.EndDate == nil {
		base = base.Where("created_at >= ?", time.Now().AddDate(0, 0, -30))
	}

	if input.Level != nil && strings.TrimSpace(*input.Level) != "" {
		base = base.Where("level = ?", strings.TrimSpace(*input.Level))
	}
	if input.Service != nil && strings.TrimSpace(*input.Service) != "" {
		base = base.Where("service = ?", strings.TrimSpace(*input.Service))
	}
	if input.Action != nil && strings.TrimSpace(*input.Action) != "" {
		base = base.Where("action = ?", strings.TrimSpace(*input.Action))
	}
	if input.EventID != nil {
		base = base.Where("event_id = ?", *input.EventID)
	}
	if input.FormID != nil {
		base = base.Where("form_id = ?", *input.FormID)
	}

	start, hasStart, endExclusive, hasEnd, err := util.ParseDateRange(input.StartDate, input.EndDate)
	if err != nil {
		return nil, LogAggregates{}, 0, 0, err
	}
	if hasStart {
		base = base.Where("created_at >= ?", start)
	}
	if hasEnd {
		base = base.Where("created_at < ?", endExclusive)
	}

	if input.Search != nil && strings.TrimSpace(*input.Search) != "" {
		like := "%" + strings.TrimSpace(*input.Search) + "%"
		base = base.Where(
			`level LIKE ? OR service LIKE ? OR action LIKE ? OR message LIKE ?`,
			like, like, like, like,
		)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, LogAggregates{}, 0, 0, err
	}

	totalPages := int(math.Ceil(float64(total) / float64(input.PageSize)))
	if totalPages == 0 {
		totalPages = 1
	}

	var rows []SystemLog
	if err := base.
		Session(&gorm.Session{}).
		Order("created_at DESC").
		Limit(input.PageSize).
		Offset((input.Page - 1) * input.PageSize).
		Find(&rows).Error; err != nil {
		return nil, LogAggregates{}, 0, 0, err
	}

	aggs, err := ls.getAggregatesFromBase(base)
	if err != nil {
		return nil, LogAggregates{}, 0, 0, err
	}

	return rows, aggs, total, totalPages, nil
}

func (ls *LogService) getAggregatesFromBase(base *gorm.DB) (LogAggregates, error) {
	aggs := LogAggregates{}
	limit := 12

	type r struct {
		Label string
		Count int64
	}

	var byService []r
	if err := base.Session(&gorm.Session{}).
		Select("service AS label, COUNT(*) AS count").
		Group("label").
		Order("count DESC").
		Limit(limit).
		Scan(&byService).Error; err != nil {
		return LogAggregates{}, err
	}
	aggs.ByService = make([]AggItem, 0, len(byService))
	for _, row := range byService {
		aggs.ByService = append(aggs.ByService, AggItem{Label: row.Label, Count: row.Count})
	}

	var byAction []r
	if err := base.Session(&gorm.Session{}).
		Select("action AS label, COUNT(*) AS count").
		Group("label").
		Order("count DESC").
		Limit(limit).
		Scan(&byAction).Error; err != nil {
		return LogAggregates{}, err
	}
	aggs.ByAction = make([]AggItem, 0, len(byAction))
	for _, row := range byAction {
		aggs.ByAction = append(aggs.ByAction, AggItem{Label: row.Label, Count: row.Count})
	}

	return aggs, nil
}
