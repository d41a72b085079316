package streamer

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/shubham-shewale/fx-platform/pkg/wsconn"
)

// ServeWS upgrades price-channel connections. The channel is one-way, so
// inbound frames are only logged.
func (l *Loop) ServeWS(opts wsconn.Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := wsconn.Accept(w, r, l.logger, opts, wsconn.Handlers{
			OnMessage: func(c *wsconn.Conn, msg []byte) {
				l.logger.Debug("Ignoring message on price channel", zap.String("conn_id", c.ID()), zap.Int("size", len(msg)))
			},
			OnClose: func(c *wsconn.Conn) { l.OnDisconnect(c) },
		})
		if err != nil {
			l.logger.Warn("Upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
			return
		}

		l.logger.Debug("Connection accepted", zap.String("conn_id", c.ID()), zap.String("remote", c.RemoteAddr()))
		l.OnConnect(c)
		c.Start()
	}
}
