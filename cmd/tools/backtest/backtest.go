package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/lavapop/cashcast/internal/analytics"
	"github.com/lavapop/cashcast/internal/analytics/anomaly"
	"github.com/lavapop/cashcast/internal/analytics/forecast"
	"github.com/lavapop/cashcast/internal/calendar"
	"github.com/lavapop/cashcast/internal/config"
	"github.com/lavapop/cashcast/internal/store/csvfile"
)

// environment is everything a subcommand needs to train.
type environment struct {
	cfg     forecast.EngineConfig
	cal     *calendar.Calendar
	revenue analytics.RevenueSeries
	weather analytics.WeatherSeries
	now     time.Time
}

func load() (*environment, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	calPath := calendarFile
	if calPath == "" {
		calPath = cfg.Calendar.File
	}
	cal, err := calendar.Load(calPath)
	if err != nil {
		return nil, err
	}

	data, err := csvfile.Open(revenueFile, weatherFile)
	if err != nil {
		return nil, err
	}
	if len(data.Revenue()) == 0 {
		return nil, fmt.Errorf("%s has no revenue rows", revenueFile)
	}

	return &environment{
		cfg:     cfg.Forecast.EngineConfig,
		cal:     cal,
		revenue: data.Revenue(),
		weather: data.Weather(),
		now:     time.Now(),
	}, nil
}

func (e *environment) train() (*forecast.Trainer, *forecast.Model, error) {
	trainer := forecast.NewTrainer(e.cfg, e.cal)
	model, err := trainer.Train(e.revenue, e.weather, e.now)
	if err != nil {
		return nil, nil, fmt.Errorf("training failed: %w", err)
	}
	return trainer, model, nil
}

// Outlier is one revenue day outside the IQR fences.
type Outlier struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Type    string  `json:"type"`
	Score   float64 `json:"score"`
}

// Report is the output of the run subcommand.
type Report struct {
	From         string               `json:"from"`
	To           string               `json:"to"`
	Tier         forecast.Tier        `json:"tier"`
	N            int                  `json:"n"`
	P            int                  `json:"p"`
	Lambda       float64              `json:"lambda"`
	MeanRevenue  float64              `json:"mean_revenue"`
	InSample     forecast.FitMetrics  `json:"in_sample"`
	CVMAE        float64              `json:"cv_mae"`
	OOS          *forecast.OOSMetrics `json:"oos,omitempty"`
	Fallback     string               `json:"fallback_reason,omitempty"`
	Coefficients map[string]float64   `json:"coefficients"`
	DataQuality  forecast.DataQuality `json:"data_quality"`
	Outliers     []Outlier            `json:"outliers,omitempty"`
	Holidays     map[string]string    `json:"holidays,omitempty"`
}

func (e *environment) backtest() (*Report, error) {
	_, model, err := e.train()
	if err != nil {
		return nil, err
	}

	rep := &Report{
		From:         analytics.DateKey(e.revenue[0].Date),
		To:           analytics.DateKey(e.revenue[len(e.revenue)-1].Date),
		Tier:         model.Tier,
		N:            model.N,
		P:            model.P,
		Lambda:       model.Lambda,
		MeanRevenue:  model.MeanRevenue,
		InSample:     model.InSample,
		CVMAE:        model.CVMAE,
		OOS:          model.OOS,
		Fallback:     model.FallbackReason,
		Coefficients: model.Coefficients(),
		DataQuality:  model.DataQuality,
	}
	rep.Holidays = e.cal.HolidaysBetween(e.revenue[0].Date, e.revenue[len(e.revenue)-1].Date)

	for _, r := range anomaly.NewIQRDetector().Detect(e.revenue.Values()) {
		day := e.revenue[r.Index]
		rep.Outliers = append(rep.Outliers, Outlier{
			Date:    analytics.DateKey(day.Date),
			Revenue: day.TotalRevenue,
			Type:    string(r.Type),
			Score:   r.Score,
		})
	}
	return rep, nil
}

// WriteText prints the report as aligned text.
func (r *Report) WriteText(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "History\t%s .. %s\n", r.From, r.To)
	fmt.Fprintf(tw, "Tier\t%s\n", r.Tier)
	fmt.Fprintf(tw, "Samples / features\t%d / %d\n", r.N, r.P)
	fmt.Fprintf(tw, "Lambda\t%g\n", r.Lambda)
	fmt.Fprintf(tw, "Mean revenue\tR$ %.2f\n", r.MeanRevenue)
	fmt.Fprintf(tw, "In-sample R2 / RMSE / MAE\t%.3f / %.2f / %.2f\n", r.InSample.RSquared, r.InSample.RMSE, r.InSample.MAE)
	if r.CVMAE > 0 {
		fmt.Fprintf(tw, "CV MAE\t%.2f\n", r.CVMAE)
	}
	if r.OOS != nil {
		fmt.Fprintf(tw, "Walk-forward MAE / MAPE / bias\t%.2f / %.1f%% / %.2f (%d points)\n", r.OOS.MAE, r.OOS.MAPE, r.OOS.Bias, r.OOS.NPoints)
	} else {
		fmt.Fprintf(tw, "Walk-forward\tnot enough history\n")
	}
	if r.Fallback != "" {
		fmt.Fprintf(tw, "Fallback\t%s\n", r.Fallback)
	}
	dq := r.DataQuality
	fmt.Fprintf(tw, "Data quality\t%d days, %d usable, %d missing weather, %d missing lags, %d outliers, %d holidays\n",
		dq.TotalDays, dq.UsableDays, dq.MissingWeather, dq.MissingLags, dq.OutlierCount, dq.HolidaysInRange)

	fmt.Fprintln(tw, "\nCoefficient\tValue")
	names := make([]string, 0, len(r.Coefficients))
	for name := range r.Coefficients {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%.4f\n", name, r.Coefficients[name])
	}

	if len(r.Holidays) > 0 {
		days := make([]string, 0, len(r.Holidays))
		for d := range r.Holidays {
			days = append(days, d)
		}
		sort.Strings(days)
		fmt.Fprintln(tw, "\nHoliday\tName")
		for _, d := range days {
			fmt.Fprintf(tw, "%s\t%s\n", d, r.Holidays[d])
		}
	}

	if len(r.Outliers) > 0 {
		fmt.Fprintln(tw, "\nOutlier\tRevenue\tType")
		for _, o := range r.Outliers {
			fmt.Fprintf(tw, "%s\t%.2f\t%s\n", o.Date, o.Revenue, o.Type)
		}
	}
	return tw.Flush()
}

// Table is the output of the forecast subcommand.
type Table struct {
	Tier        forecast.Tier         `json:"tier"`
	Start       string                `json:"start"`
	Total       float64               `json:"total_predicted_revenue"`
	Predictions []forecast.Prediction `json:"predictions"`
}

func (e *environment) forecast(start string) (*Table, error) {
	trainer, model, err := e.train()
	if err != nil {
		return nil, err
	}

	from := e.revenue[len(e.revenue)-1].Date.AddDate(0, 0, 1)
	if start != "" {
		if from, err = analytics.ParseDate(start); err != nil {
			return nil, fmt.Errorf("invalid --start: %w", err)
		}
	}

	preds := forecast.NewPredictor(trainer.Engineer(), e.cal, e.cfg.Interval).
		Forecast(model, e.revenue, e.weather, from, e.cfg.Horizon)

	t := &Table{Tier: model.Tier, Start: analytics.DateKey(from), Predictions: preds}
	for _, p := range preds {
		t.Total += p.PredictedRevenue
	}
	return t, nil
}

// WriteText prints one row per forecast day.
func (t *Table) WriteText(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Date\tDay\tRevenue\tInterval\tWeather\tCategory\tNote\n")
	for _, p := range t.Predictions {
		note := p.HolidayName
		if p.IsClosedDay {
			note = p.ClosedReason
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f - %.2f\t%+.1f%%\t%s\t%s\n",
			analytics.DateKey(p.Date), p.Date.Weekday().String()[:3],
			p.PredictedRevenue, p.IntervalLow, p.IntervalHigh, p.WeatherImpactPct, p.Category, note)
	}
	fmt.Fprintf(tw, "Total\t\t%.2f\t\t\t%s tier\t\n", t.Total, t.Tier)
	return tw.Flush()
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
