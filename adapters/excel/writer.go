package excel

import (
	"fmt"

	"goais/domain/sampling"

	"github.com/montanaflynn/stats"
	"github.com/xuri/excelize/v2"
)

// RunReport is everything the history writer puts in a workbook
type RunReport struct {
	RunID    string
	Estimate sampling.Estimate
	History  []sampling.IterationRecord
	Points   []sampling.RepresentativePoint
	Extremes map[int]sampling.Extremes
}

// WriteReport saves a run as an xlsx workbook with History, Points and
// Summary sheets.
func WriteReport(path string, report RunReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "History"); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeRow(f, "History", 1, "iteration", "probability", "cov", "samples", "failures", "representative_points", "unstable"); err != nil {
		return err
	}
	for i, rec := range report.History {
		if err := writeRow(f, "History", i+2, rec.Iteration, rec.Probability, rec.COV, rec.Samples, rec.Failures, rec.Representative, rec.Unstable); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet("Points"); err != nil {
		return fmt.Errorf("failed to add Points sheet: %w", err)
	}
	if len(report.Points) > 0 {
		header := []interface{}{"weight"}
		for d := range report.Points[0].Point {
			header = append(header, fmt.Sprintf("u%d", d+1))
		}
		if err := writeRow(f, "Points", 1, header...); err != nil {
			return err
		}
		for i, rp := range report.Points {
			row := []interface{}{rp.Weight}
			for _, v := range rp.Point {
				row = append(row, v)
			}
			if err := writeRow(f, "Points", i+2, row...); err != nil {
				return err
			}
		}
	}

	if _, err := f.NewSheet("Summary"); err != nil {
		return fmt.Errorf("failed to add Summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"run_id", report.RunID},
		{"status", report.Estimate.Status.String()},
		{"probability", report.Estimate.Probability},
		{"cov", report.Estimate.COV},
		{"samples", report.Estimate.Samples},
		{"iterations", report.Estimate.Iterations},
	}
	if len(report.History) > 0 {
		probs := make([]float64, len(report.History))
		for i, rec := range report.History {
			probs[i] = rec.Probability
		}
		mean, _ := stats.Mean(probs)
		summary = append(summary, []interface{}{"mean_iteration_probability", mean})
	}
	for _, idx := range sampling.ResponseIndices(report.Extremes) {
		ext := report.Extremes[idx]
		summary = append(summary,
			[]interface{}{fmt.Sprintf("response_%d_min", idx), ext.Min},
			[]interface{}{fmt.Sprintf("response_%d_max", idx), ext.Max})
	}
	for i, row := range summary {
		if err := writeRow(f, "Summary", i+1, row...); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report %s: %w", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// WriteSeedBatch saves samples and their response vectors in the layout
// ReadSeedBatch expects.
func WriteSeedBatch(path string, samples []sampling.Sample, responses [][]float64) error {
	if len(samples) != len(responses) {
		return fmt.Errorf("have %d samples but %d response vectors", len(samples), len(responses))
	}
	if len(samples) == 0 {
		return fmt.Errorf("seed batch is empty")
	}

	f := excelize.NewFile()
	defer f.Close()

	header := []interface{}{}
	for d := range samples[0] {
		header = append(header, fmt.Sprintf("u%d", d+1))
	}
	for k := range responses[0] {
		header = append(header, fmt.Sprintf("r%d", k))
	}
	if err := writeRow(f, "Sheet1", 1, header...); err != nil {
		return err
	}
	for i, s := range samples {
		row := make([]interface{}, 0, len(s)+len(responses[i]))
		for _, v := range s {
			row = append(row, v)
		}
		for _, v := range responses[i] {
			row = append(row, v)
		}
		if err := writeRow(f, "Sheet1", i+2, row...); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save seed batch %s: %w", path, err)
	}
	return nil
}
