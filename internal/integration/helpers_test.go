//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"

	"github.com/paulmach/orb"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/storm-hazard-impact/internal/domain"
)

const kafkaImage = "confluentinc/confluent-local:7.5.0"

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("hazard-impact-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "find controller")

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}), "create topic %s", topic)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// floodRequest builds a geographic 40x40 raster around downtown Austin with
// a 4x4 flooded block in the north-west quadrant and three roads: one through
// the block, one just east of it, and one in the far south-east corner.
func floodRequest(id string) domain.AnalysisRequest {
	const size = 40
	bound := orb.Bound{Min: orb.Point{-97.76, 30.25}, Max: orb.Point{-97.72, 30.29}}
	pixel := (bound.Max[0] - bound.Min[0]) / size

	values := make([]float64, size*size)
	for y := 10; y < 14; y++ {
		for x := 10; x < 14; x++ {
			values[y*size+x] = 1
		}
	}

	center := func(x, y int) orb.Point {
		return orb.Point{
			bound.Min[0] + (float64(x)+0.5)*pixel,
			bound.Max[1] - (float64(y)+0.5)*pixel,
		}
	}

	return domain.AnalysisRequest{
		ID: id,
		Raster: domain.RasterInput{
			Width:      size,
			Height:     size,
			Bands:      []domain.Band{domain.ArrayBand(values)},
			BBox:       []float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]},
			Resolution: []float64{pixel, -pixel},
			CRS:        "EPSG:4326",
		},
		Roads: []domain.RoadFeature{
			{ID: "101", Name: "Lamar Boulevard", Geometry: orb.LineString{center(8, 12), center(12, 12), center(16, 12)}},
			{ID: "102", Name: "Guadalupe Street", Geometry: orb.LineString{center(16, 8), center(16, 16)}},
			{ID: "103", Name: "Riverside Drive", Geometry: orb.LineString{center(34, 34), center(38, 36)}},
		},
	}
}

func encodeRequest(t *testing.T, req domain.AnalysisRequest) []byte {
	t.Helper()
	data, err := domain.EncodeAnalysisRequest(req)
	require.NoError(t, err)
	return data
}
