// Package util starts disposable brokers and databases for the container
// tests. Each Start function blocks until the service accepts clients and
// returns its endpoint with a cleanup function.
package util

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	paho "github.com/eclipse/paho.mqtt.golang"
	_ "github.com/jackc/pgx/v5/stdlib"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	MosquittoReadyTimeout = 5 * time.Second
	PostgresReadyTimeout  = 20 * time.Second

	pollInterval = 50 * time.Millisecond
)

const mosquittoConf = `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
`

// RequireDocker skips t unless DOCKER_AVAILABLE is "true" or "1".
func RequireDocker(t *testing.T) {
	t.Helper()
	switch os.Getenv("DOCKER_AVAILABLE") {
	case "true", "1":
	default:
		t.Skip("docker not available")
	}
}

// container is a started container reachable on one mapped port.
type container struct {
	c    tc.Container
	host string
	port string
}

func start(ctx context.Context, req tc.ContainerRequest, port string) (*container, error) {
	req.ExposedPorts = []string{port + "/tcp"}
	req.WaitingFor = wait.ForListeningPort(nat.Port(port + "/tcp"))
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		return nil, err
	}
	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		return nil, err
	}
	mapped, err := c.MappedPort(ctx, nat.Port(port+"/tcp"))
	if err != nil {
		_ = c.Terminate(context.Background())
		return nil, err
	}
	return &container{c: c, host: host, port: mapped.Port()}, nil
}

func (c *container) terminate() { _ = c.c.Terminate(context.Background()) }

// poll runs probe until it succeeds or ctx ends.
func poll(ctx context.Context, what string, probe func() error) error {
	for {
		err := probe()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s not ready: %v: %w", what, err, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// StartMosquitto runs an anonymous eclipse-mosquitto 2 broker and returns
// its tcp:// URL.
func StartMosquitto(ctx context.Context) (string, func(), error) {
	dir, err := os.MkdirTemp("", "mosquitto")
	if err != nil {
		return "", nil, err
	}
	confPath := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(confPath, []byte(mosquittoConf), 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}
	c, err := start(ctx, tc.ContainerRequest{
		Image: "eclipse-mosquitto:2.0",
		Files: []tc.ContainerFile{{
			HostFilePath:      confPath,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
	}, "1883")
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}
	cleanup := func() {
		c.terminate()
		_ = os.RemoveAll(dir)
	}

	broker := fmt.Sprintf("tcp://%s:%s", c.host, c.port)
	waitCtx, cancel := context.WithTimeout(ctx, MosquittoReadyTimeout)
	defer cancel()
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("readiness-probe")
	err = poll(waitCtx, "mosquitto", func() error {
		cli := paho.NewClient(opts)
		tok := cli.Connect()
		tok.Wait()
		if tok.Error() != nil {
			return tok.Error()
		}
		cli.Disconnect(100)
		return nil
	})
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return broker, cleanup, nil
}

// StartPostgres runs postgres:16-alpine with user, password and database
// all named "triage" and returns a pgx DSN.
func StartPostgres(ctx context.Context) (string, func(), error) {
	c, err := start(ctx, tc.ContainerRequest{
		Image: "postgres:16-alpine",
		Env: map[string]string{
			"POSTGRES_USER":     "triage",
			"POSTGRES_PASSWORD": "triage",
			"POSTGRES_DB":       "triage",
		},
	}, "5432")
	if err != nil {
		return "", nil, err
	}

	dsn := fmt.Sprintf("postgres://triage:triage@%s:%s/triage?sslmode=disable", c.host, c.port)
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		c.terminate()
		return "", nil, err
	}
	defer db.Close()
	waitCtx, cancel := context.WithTimeout(ctx, PostgresReadyTimeout)
	defer cancel()
	if err := poll(waitCtx, "postgres", func() error { return db.PingContext(waitCtx) }); err != nil {
		c.terminate()
		return "", nil, err
	}
	return dsn, c.terminate, nil
}
