package redis

import (
	"bufio"
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Info is the subset of Redis server details exposed on the health endpoint.
type Info struct {
	Version          string
	ConnectedClients int64
	UsedMemory       int64
}

// ServerInfo fetches and parses the server, clients and memory sections of
// the INFO command.
func ServerInfo(ctx context.Context, client redis.UniversalClient) (Info, error) {
	raw, err := client.Info(ctx, "server", "clients", "memory").Result()
	if err != nil {
		return Info{}, errors.Join(ErrInfoUnavailable, err)
	}
	return parseInfo(raw), nil
}

// parseInfo extracts the fields of interest from the INFO reply, a
// CRLF-separated list of "field:value" lines interleaved with "# Section"
// headers. Unknown lines are skipped.
func parseInfo(raw string) Info {
	var info Info

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		switch field {
		case "redis_version":
			info.Version = value
		case "connected_clients":
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				info.ConnectedClients = n
			}
		case "used_memory":
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				info.UsedMemory = n
			}
		}
	}

	return info
}
