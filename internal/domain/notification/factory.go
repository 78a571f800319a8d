// internal/domain/notification/factory.go
package notification

import (
	"fmt"
)

// Backends holds the clients the configured gateways may need.
// Unused backends may be nil.
type Backends struct {
	Redis    RedisPublisher
	NATS     NATSPublisher
	Email    EmailRenderer
	Contacts ContactBook
	Catalog  Catalog
}

// Options names the gateways to build and their settings
type Options struct {
	Providers    []string
	RedisChannel string
	NATSSubject  string
}

// BuildGateway assembles the configured providers into one gateway
func BuildGateway(opts Options, backends Backends, log *LogGateway) (Gateway, error) {
	var gateways Multi
	for _, provider := range opts.Providers {
		switch provider {
		case "log":
			gateways = append(gateways, log)
		case "redis":
			if backends.Redis == nil {
				return nil, fmt.Errorf("redis notifications need a redis connection")
			}
			gateways = append(gateways, NewRedisGateway(backends.Redis, opts.RedisChannel))
		case "nats":
			if backends.NATS == nil {
				return nil, fmt.Errorf("nats notifications need a nats connection")
			}
			gateways = append(gateways, NewNATSGateway(backends.NATS, opts.NATSSubject))
		case "email":
			if backends.Email == nil || backends.Contacts == nil || backends.Catalog == nil {
				return nil, fmt.Errorf("email notifications need an email service and directories")
			}
			gateways = append(gateways, NewEmailGateway(backends.Email, backends.Contacts, backends.Catalog))
		default:
			return nil, fmt.Errorf("unknown notification provider %q", provider)
		}
	}

	switch len(gateways) {
	case 0:
		return log, nil
	case 1:
		return gateways[0], nil
	default:
		return gateways, nil
	}
}
