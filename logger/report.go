package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type flowStat struct {
	messages int64
	bytes    int64
}

var (
	errorsFetch    int64
	errorsPersist  int64
	warnsFetch     int64
	warnsPersist   int64
	cyclesRun      int64
	cyclesFailed   int64
	rowsFetched    int64
	recordsAdded   int64
	backupsCreated int64
	archiveWrites  int64
	flows          sync.Map // map[string]*flowStat
)

func recordWarn(component string) {
	if strings.Contains(component, "fetch") || strings.Contains(component, "session") {
		atomic.AddInt64(&warnsFetch, 1)
	} else if strings.Contains(component, "store") || strings.Contains(component, "archive") {
		atomic.AddInt64(&warnsPersist, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "fetch") || strings.Contains(component, "session") {
		atomic.AddInt64(&errorsFetch, 1)
	} else if strings.Contains(component, "store") || strings.Contains(component, "archive") {
		atomic.AddInt64(&errorsPersist, 1)
	}
}

// IncrementCycle records the outcome of one completed update cycle.
func IncrementCycle(success bool) {
	atomic.AddInt64(&cyclesRun, 1)
	if !success {
		atomic.AddInt64(&cyclesFailed, 1)
	}
}

// IncrementRowsFetched records rows received from the remote feed.
func IncrementRowsFetched(count, size int) {
	atomic.AddInt64(&rowsFetched, int64(count))
	recordFlow("api_fetch", size)
}

// IncrementRecordsAdded records rows that survived deduplication.
func IncrementRecordsAdded(count int) {
	atomic.AddInt64(&recordsAdded, int64(count))
}

// IncrementBackup records a dataset file rotated aside before a rewrite.
func IncrementBackup() {
	atomic.AddInt64(&backupsCreated, 1)
}

// IncrementArchiveWrite records an archive snapshot shipped to S3.
func IncrementArchiveWrite(size int64) {
	atomic.AddInt64(&archiveWrites, 1)
	recordFlow("s3_archive_write", int(size))
}

func recordFlow(name string, size int) {
	v, _ := flows.LoadOrStore(name, &flowStat{})
	fs := v.(*flowStat)
	atomic.AddInt64(&fs.messages, 1)
	atomic.AddInt64(&fs.bytes, int64(size))
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of system and scrape statistics.
// It exposes the internal startReport function for use by other packages.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	flowData := map[string]map[string]int64{}
	flows.Range(func(k, v any) bool {
		name := k.(string)
		fs := v.(*flowStat)
		flowData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&fs.messages),
			"bytes":    atomic.LoadInt64(&fs.bytes),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	fields := Fields{
		"errors_fetch":    atomic.LoadInt64(&errorsFetch),
		"errors_persist":  atomic.LoadInt64(&errorsPersist),
		"warns_fetch":     atomic.LoadInt64(&warnsFetch),
		"warns_persist":   atomic.LoadInt64(&warnsPersist),
		"cycles_run":      atomic.LoadInt64(&cyclesRun),
		"cycles_failed":   atomic.LoadInt64(&cyclesFailed),
		"rows_fetched":    atomic.LoadInt64(&rowsFetched),
		"records_added":   atomic.LoadInt64(&recordsAdded),
		"backups_created": atomic.LoadInt64(&backupsCreated),
		"archive_writes":  atomic.LoadInt64(&archiveWrites),
		"goroutines":      runtime.NumGoroutine(),
		"cpu_percent":     cpuPct,
		"memory_mb":       int64(memStats.Used) / 1024 / 1024,
		"disk_mb":         int64(diskStats.Used) / 1024 / 1024,
		"flows":           flowData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsFetch"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_fetch"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsPersist"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_persist"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("WarnsFetch"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_fetch"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("WarnsPersist"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_persist"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("CyclesRun"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["cycles_run"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("CyclesFailed"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["cycles_failed"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("RowsFetched"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["rows_fetched"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("RecordsAdded"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["records_added"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("ArchiveWrites"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["archive_writes"].(int64)))},
	)

	for name, stats := range flowData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("FlowMessages"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Flow"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["messages"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("FlowBytes"),
				Unit:       cwtypes.StandardUnitBytes,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Flow"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["bytes"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
