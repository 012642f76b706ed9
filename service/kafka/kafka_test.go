package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"go.uber.org/zap"
)

func TestProducerPublish(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"user":"u1"}` {
			return errors.New("unexpected payload " + string(val))
		}
		return nil
	})
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducerFrom(sp, "seguir-notify-digest")
	if err := p.Publish(context.Background(), "u1", []byte(`{"user":"u1"}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := p.Publish(context.Background(), "u1", []byte(`{}`)); err == nil {
		t.Fatal("want error")
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducerCancelled(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewProducerFrom(sp, "t").Publish(ctx, "", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("want canceled, got %v", err)
	}
	_ = sp.Close()
}

func TestBuildSaramaConfig(t *testing.T) {
	cfg := BuildSaramaConfig(Config{Version: "2.8.0", ProducerCompression: "lz4", InitialOffset: "oldest"})
	if cfg.Version != sarama.V2_8_0_0 {
		t.Fatalf("version = %v", cfg.Version)
	}
	if cfg.Producer.Compression != sarama.CompressionLZ4 {
		t.Fatalf("compression = %v", cfg.Producer.Compression)
	}
	if cfg.Consumer.Offsets.Initial != sarama.OffsetOldest {
		t.Fatalf("offset = %v", cfg.Consumer.Offsets.Initial)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid config: %v", err)
	}

	def := BuildSaramaConfig(Config{Version: "bogus"})
	if def.Version != sarama.V2_1_0_0 || def.Producer.Compression != sarama.CompressionNone {
		t.Fatalf("defaults not applied: %v %v", def.Version, def.Producer.Compression)
	}
}

func TestGroupHandlerProcess(t *testing.T) {
	var got string
	h := &groupHandler{
		log: zap.NewNop(),
		handle: func(_ context.Context, topic string, key, value []byte) error {
			got = topic + "|" + string(key) + "|" + string(value)
			return errors.New("logged, not returned")
		},
	}
	h.process(context.Background(), &sarama.ConsumerMessage{Topic: "seguir-notify", Key: []byte("k"), Value: []byte("v")})
	if got != "seguir-notify|k|v" {
		t.Fatalf("got %q", got)
	}
}
