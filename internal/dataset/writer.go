package dataset

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/sirupsen/logrus"

	"github.com/lxplabs/recflow/pkg/models"
)

// Writer serializes the final recommendation table to parquet.
type Writer struct {
	logger *logrus.Logger
}

func NewWriter(logger *logrus.Logger) *Writer {
	return &Writer{logger: logger}
}

func (w *Writer) WriteRecommendations(path string, recs []models.RankedPair) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating result file: %w", err)
	}
	defer f.Close()

	pw := parquet.NewGenericWriter[models.RankedPair](f, parquet.Compression(&parquet.Snappy))
	if _, err := pw.Write(recs); err != nil {
		return fmt.Errorf("writing recommendations: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("closing parquet writer: %w", err)
	}

	w.logger.WithFields(logrus.Fields{"path": path, "rows": len(recs)}).Info("Recommendations written")
	return nil
}
