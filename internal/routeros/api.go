package routeros

import (
	"context"
	"sync"
	"time"

	ros "github.com/go-routeros/routeros/v3"
)

// apiSession is a Session over the RouterOS API protocol.
type apiSession struct {
	c    *ros.Client
	once sync.Once
}

func dialAPI(ctx context.Context, address, user, password string, timeout time.Duration) (Session, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	c, err := ros.DialTimeout(address, user, password, timeout)
	if err != nil {
		return nil, err
	}
	return &apiSession{c: c}, nil
}

func (s *apiSession) DefaultRoutes(ctx context.Context) ([]map[string]string, error) {
	// Closing the client unblocks a Run stuck on an unresponsive device.
	stop := context.AfterFunc(ctx, s.Close)
	defer stop()

	reply, err := s.c.Run(
		"/ip/route/print",
		"?dst-address=0.0.0.0/0",
		"=.proplist=dst-address,gateway,gateway-status,active,disabled",
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	routes := make([]map[string]string, 0, len(reply.Re))
	for _, re := range reply.Re {
		routes = append(routes, re.Map)
	}
	return routes, nil
}

// Close may be called concurrently by a cancelled query and the caller.
func (s *apiSession) Close() {
	s.once.Do(func() { s.c.Close() })
}
