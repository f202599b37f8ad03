package writer

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	parquetwriter "github.com/xitongsys/parquet-go/writer"

	appconfig "nseflow/config"
	"nseflow/logger"
	"nseflow/models"
)

// ArchiveRecord is the parquet row layout for archived disclosures.
type ArchiveRecord struct {
	Symbol          string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Company         string  `parquet:"name=company, type=BYTE_ARRAY, convertedtype=UTF8"`
	Name            string  `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Date            int64   `parquet:"name=date, type=INT64"`
	SecuritiesValue float64 `parquet:"name=sec_val, type=DOUBLE"`
	TransactionType string  `parquet:"name=transaction_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	BuyValue        float64 `parquet:"name=buy_value, type=DOUBLE"`
	SellValue       float64 `parquet:"name=sell_value, type=DOUBLE"`
	BuyQuantity     float64 `parquet:"name=buy_quantity, type=DOUBLE"`
	SellQuantity    float64 `parquet:"name=sell_quantity, type=DOUBLE"`
}

// memoryFileWriter implements ParquetFile for in-memory writing
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{
		buffer: &bytes.Buffer{},
	}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	// Writing is append-only here, seek is not needed.
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) {
	return mfw.buffer.Read(b)
}

func (mfw *memoryFileWriter) Write(b []byte) (int, error) {
	return mfw.buffer.Write(b)
}

func (mfw *memoryFileWriter) Close() error {
	return nil
}

func (mfw *memoryFileWriter) Bytes() []byte {
	return mfw.buffer.Bytes()
}

// Archiver uploads a parquet snapshot of the newly merged records to S3
// after each cycle. Archive failures are logged but never fail the cycle;
// the CSV file remains the source of truth.
type Archiver struct {
	config   *appconfig.Config
	s3Client *s3.Client
	log      *logger.Log
}

func NewArchiver(cfg *appconfig.Config) (*Archiver, error) {
	log := logger.GetLogger()

	ctx := context.Background()

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Storage.S3.Region),
	}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithComponent("archiver").WithError(err).Warn("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsConfig.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	})

	log.WithComponent("archiver").WithFields(logger.Fields{
		"bucket":     cfg.Storage.S3.Bucket,
		"region":     cfg.Storage.S3.Region,
		"endpoint":   cfg.Storage.S3.Endpoint,
		"path_style": cfg.Storage.S3.PathStyle,
	}).Info("archiver initialized")

	return &Archiver{
		config:   cfg,
		s3Client: s3Client,
		log:      log,
	}, nil
}

// ArchiveSnapshot writes the given rows as one parquet object keyed by the
// cycle time. An empty dataset is skipped.
func (a *Archiver) ArchiveSnapshot(ctx context.Context, ds *models.Dataset, asOf time.Time) error {
	log := a.log.WithComponent("archiver").WithFields(logger.Fields{
		"record_count": ds.Len(),
		"operation":    "archive_snapshot",
	})

	if ds.Len() == 0 {
		log.Debug("no records to archive, skipping")
		return nil
	}

	s3Key := a.generateS3Key(asOf)
	log = log.WithFields(logger.Fields{"s3_key": s3Key})

	data, fileSize, err := a.createParquetFile(ds)
	if err != nil {
		log.WithError(err).Error("failed to create parquet file")
		return err
	}

	if err := a.uploadToS3(ctx, s3Key, data); err != nil {
		log.WithError(err).
			WithEnv("S3_BUCKET").
			WithFields(logger.Fields{"bucket": a.config.Storage.S3.Bucket, "s3_key": s3Key}).
			Error("failed to upload to S3")
		return err
	}

	logger.IncrementArchiveWrite(fileSize)
	log.WithFields(logger.Fields{"file_size": fileSize}).Info("snapshot archived")
	return nil
}

func (a *Archiver) generateS3Key(asOf time.Time) string {
	parts := []string{}
	if a.config.Storage.S3.Prefix != "" {
		parts = append(parts, a.config.Storage.S3.Prefix)
	}
	parts = append(parts, fmt.Sprintf("date=%s", asOf.UTC().Format("2006-01-02")))

	filename := fmt.Sprintf("nseflow_%s.parquet", asOf.UTC().Format("20060102150405"))
	key := filepath.Join(append(parts, filename)...)

	// Convert to forward slashes for S3
	return filepath.ToSlash(key)
}

func (a *Archiver) createParquetFile(ds *models.Dataset) ([]byte, int64, error) {
	log := a.log.WithComponent("archiver").WithFields(logger.Fields{
		"record_count": ds.Len(),
		"operation":    "create_parquet_file",
	})
	log.Info("creating parquet file")

	fw := newMemoryFileWriter()

	pw, err := parquetwriter.NewParquetWriter(fw, new(ArchiveRecord), 4)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	switch a.config.Archive.Compression {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	case "lzo":
		pw.CompressionType = parquet.CompressionCodec_LZO
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	for _, row := range ds.Rows {
		record := ArchiveRecord{
			Symbol:          stringCell(row, models.ColSymbol),
			Company:         stringCell(row, models.ColCompany),
			Name:            stringCell(row, models.ColName),
			SecuritiesValue: numberCell(row, models.ColSecVal),
			TransactionType: stringCell(row, models.ColTransactionType),
			BuyValue:        numberCell(row, "buyValue"),
			SellValue:       numberCell(row, "sellValue"),
			BuyQuantity:     numberCell(row, "buyQuantity"),
			SellQuantity:    numberCell(row, "sellquantity"),
		}
		if v, ok := row.Get(models.ColDate); ok && v.Kind == models.KindTime {
			record.Date = v.Time.UnixMilli()
		}

		if err := pw.Write(record); err != nil {
			pw.WriteStop()
			return nil, 0, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, 0, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}

	data := fw.Bytes()

	log.WithFields(logger.Fields{
		"file_size":   len(data),
		"compression": a.config.Archive.Compression,
	}).Info("parquet file created successfully")

	return data, int64(len(data)), nil
}

func (a *Archiver) uploadToS3(ctx context.Context, key string, data []byte) error {
	log := a.log.WithComponent("archiver").WithFields(logger.Fields{
		"operation": "upload_to_s3",
		"data_size": len(data),
	})
	log.Info("uploading to S3")

	input := &s3.PutObjectInput{
		Bucket:      aws.String(a.config.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type":    "parquet",
			"compression":     a.config.Archive.Compression,
			"nseflow-version": a.config.Nseflow.Version,
		},
	}

	ctx = context.WithoutCancel(ctx)
	if _, err := a.s3Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", a.config.Storage.S3.Bucket, err)
	}

	log.Info("successfully uploaded to S3")
	return nil
}

func stringCell(row models.Row, col string) string {
	v, ok := row.Get(col)
	if !ok || v.Kind != models.KindString {
		return ""
	}
	return v.Str
}

func numberCell(row models.Row, col string) float64 {
	v, ok := row.Get(col)
	if !ok || v.Kind != models.KindNumber {
		return 0
	}
	return v.Num
}
