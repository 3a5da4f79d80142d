// Package walkforward evaluates strategies across sliding train/test
// windows and the parameter grid, selecting each window's combo from
// training data only and measuring it out-of-sample.
package walkforward

import (
	"time"

	"strategylab/internal/model"
)

// Windows generates consecutive walk-forward windows over the calendar
// span [startYear, endYear]: each has trainYears of training immediately
// followed by testYears of testing, advancing one year at a time while
// both spans fit. Ids are sequential from 1.
func Windows(trainYears, testYears, startYear, endYear int) []model.WFWindow {
	if trainYears <= 0 || testYears <= 0 {
		return nil
	}

	var windows []model.WFWindow
	id := 1
	for y := startYear; y+trainYears+testYears-1 <= endYear; y++ {
		windows = append(windows, model.WFWindow{
			ID:         id,
			TrainStart: yearStart(y),
			TrainEnd:   yearEnd(y + trainYears - 1),
			TestStart:  yearStart(y + trainYears),
			TestEnd:    yearEnd(y + trainYears + testYears - 1),
		})
		id++
	}
	return windows
}

func yearStart(y int) time.Time { return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC) }
func yearEnd(y int) time.Time   { return time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC) }
