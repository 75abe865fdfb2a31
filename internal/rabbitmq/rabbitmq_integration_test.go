//go:build integration

package rabbitmq

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/subshare/internal/models"
)

const amqpPort nat.Port = "5672/tcp"

func setupRabbitMQ(ctx context.Context, t *testing.T) string {
	req := testcontainers.ContainerRequest{
		Image:        "rabbitmq:3-management",
		ExposedPorts: []string{string(amqpPort)},
		Env: map[string]string{
			"RABBITMQ_DEFAULT_USER": "guest",
			"RABBITMQ_DEFAULT_PASS": "guest",
		},
		WaitingFor: wait.ForListeningPort(amqpPort).WithStartupTimeout(2 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate rabbitmq container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, amqpPort)
	require.NoError(t, err)
	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}

func TestPublishAndConsume(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	conn, err := Connect(setupRabbitMQ(ctx, t), 10, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	ch, err := SetupChannel(conn, "subshare.events", NotificationQueues())
	require.NoError(t, err)
	defer ch.Close()

	received := make(chan []byte, 1)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	err = ConsumerMessage(ctx, log, ch, QueueInvitations, func(body []byte) error {
		received <- body
		return nil
	})
	require.NoError(t, err)

	pubCh, err := conn.Channel()
	require.NoError(t, err)
	defer pubCh.Close()
	p := NewPublisher(pubCh, "subshare.events")
	require.NoError(t, p.Publish(ctx, models.RoutingMembersInvited, models.InvitationEvent{GroupID: "g1"}))

	select {
	case body := <-received:
		assert.Contains(t, string(body), `"group_id":"g1"`)
	case <-time.After(10 * time.Second):
		t.Fatal("message was not delivered")
	}
}
