package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"usage-alerts/internal/metering"
)

// Export renders archived usage as CSV and/or a PNG trend chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.AddDate(0, 0, -30)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	records, err := store.ListRecordsBetween(ctx, from, to, opts.CustomerID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.Logger.Info().Msg("no records found for export window")
		return nil
	}

	buckets := metering.AggregateTrends(records)
	downsampled := downsampleBuckets(buckets, opts.MaxPoints)
	a.Logger.Info().
		Int("records", len(records)).
		Int("days", len(buckets)).
		Int("exported", len(downsampled)).
		Msg("exporting usage trend")

	if opts.CSVPath != "" {
		if err := writeBucketsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeBucketsPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleBuckets(buckets []metering.TrendBucket, max int) []metering.TrendBucket {
	if max <= 0 || len(buckets) <= max {
		return buckets
	}

	result := make([]metering.TrendBucket, 0, max)
	step := float64(len(buckets)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(buckets) {
			idx = len(buckets) - 1
		}
		result = append(result, buckets[idx])
	}
	return result
}

func writeBucketsCSV(path string, buckets []metering.TrendBucket) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"date", "total", "data", "voice", "sms", "other"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, bucket := range buckets {
		row := []string{
			bucket.Date.Format("2006-01-02"),
			bucket.Total.String(),
			bucket.ByType[metering.UsageData].String(),
			bucket.ByType[metering.UsageVoice].String(),
			bucket.ByType[metering.UsageSMS].String(),
			bucket.ByType[metering.UsageOther].String(),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeBucketsPNG(path string, buckets []metering.TrendBucket) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(buckets))
	total := make([]float64, len(buckets))
	data := make([]float64, len(buckets))
	voice := make([]float64, len(buckets))

	for i, bucket := range buckets {
		x[i] = bucket.Date
		total[i] = bucket.Total.InexactFloat64()
		data[i] = bucket.ByType[metering.UsageData].InexactFloat64()
		voice[i] = bucket.ByType[metering.UsageVoice].InexactFloat64()
	}

	usageFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.1f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Usage",
			ValueFormatter: usageFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Total",
				XValues: x,
				YValues: total,
			},
			chart.TimeSeries{
				Name:    "Data",
				XValues: x,
				YValues: data,
			},
			chart.TimeSeries{
				Name:    "Voice",
				XValues: x,
				YValues: voice,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
