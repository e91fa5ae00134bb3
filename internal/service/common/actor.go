//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"

	"google.golang.org/grpc/metadata"
)

// gRPC metadata keys carrying the actor.
const (
	MetadataHostname = "x-catpoint-hostname"
	MetadataUsername = "x-catpoint-username"
)

// errActorRequired is returned when an actor is not provided but is required for the operation.
var errActorRequired = errors.New("actor must be provided")

// Actor identifies who issued a request.
type Actor struct {
	Hostname string
	Username string
}

// String renders the actor as user@host.
func (a *Actor) String() string {
	if a == nil {
		return "<unknown>"
	}

	return a.Username + "@" + a.Hostname
}

// DetectActor gathers host and user information for audit trail.
func DetectActor() (*Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}

// OutgoingActorContext attaches the actor to outgoing gRPC metadata.
func OutgoingActorContext(ctx context.Context, actor *Actor) (context.Context, error) {
	if actor == nil {
		return nil, errActorRequired
	}

	return metadata.AppendToOutgoingContext(ctx,
		MetadataHostname, actor.Hostname,
		MetadataUsername, actor.Username,
	), nil
}

// IncomingActor extracts the actor from incoming gRPC metadata, or nil when absent.
func IncomingActor(ctx context.Context) *Actor {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}

	hostnames, usernames := md.Get(MetadataHostname), md.Get(MetadataUsername)
	if len(hostnames) == 0 || len(usernames) == 0 {
		return nil
	}

	return &Actor{
		Hostname: hostnames[0],
		Username: usernames[0],
	}
}
