package influx

import (
	"compress/gzip"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
)

// apiSink batches points through the non-blocking write API. Write errors arrive
// asynchronously and are logged.
type apiSink struct {
	client influxdb2.Client
	writer api.WriteAPI
	drain  sync.WaitGroup
}

func newAPISink(client influxdb2.Client, org, bucket string, log zerolog.Logger) *apiSink {
	s := &apiSink{client: client, writer: client.WriteAPI(org, bucket)}
	errs := s.writer.Errors()
	s.drain.Add(1)
	go func() {
		defer s.drain.Done()
		for err := range errs {
			log.Error().Err(err).Str("bucket", bucket).Msg("InfluxDB write failed")
		}
	}()
	return s
}

func (s *apiSink) write(p *write.Point) error {
	s.writer.WritePoint(p)
	return nil
}

func (s *apiSink) close() error {
	s.writer.Flush()
	s.client.Close()
	s.drain.Wait()
	return nil
}

// backupSink appends line protocol to a gzip stream.
type backupSink struct {
	file *os.File
	gz   *gzip.Writer
}

func openBackup(path string) (*backupSink, error) {
	if path == "" {
		return nil, errors.New("influx backup path not set")
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open influx backup: %w", err)
	}
	return &backupSink{file: f, gz: gzip.NewWriter(f)}, nil
}

func (s *backupSink) write(p *write.Point) error {
	line := write.PointToLineProtocol(p, time.Nanosecond)
	if _, err := s.gz.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("write influx backup: %w", err)
	}
	return nil
}

func (s *backupSink) close() error {
	return errors.Join(s.gz.Close(), s.file.Close())
}
