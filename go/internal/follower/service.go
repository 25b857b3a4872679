package follower

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mcdev12/streamagenda/go/clients/stream_api_client"
	"github.com/mcdev12/streamagenda/go/internal/addons"
	"github.com/mcdev12/streamagenda/go/internal/agenda"
	"github.com/mcdev12/streamagenda/go/internal/agendafile"
	"github.com/mcdev12/streamagenda/go/internal/config"
	"github.com/mcdev12/streamagenda/go/internal/notify"
	"github.com/mcdev12/streamagenda/go/internal/pushchannel"
	"github.com/mcdev12/streamagenda/go/internal/status"
	"github.com/rs/zerolog/log"
)

// Channel is a push channel the service owns and closes.
type Channel interface {
	agenda.PushChannel
	Close() error
}

// Service follows one room's agenda: it keeps the session in sync and
// turns due agenda items into notifications.
type Service struct {
	cfg          config.Config
	channel      Channel
	session      *agenda.Session
	addons       *addons.Tracker
	statusServer *http.Server
	detachAddons func()
}

// Connect resolves the credential, agenda source and transport from cfg and builds the service.
func Connect(ctx context.Context, cfg config.Config, out io.Writer) (*Service, error) {
	api := stream_api_client.NewStreamApiClient(cfg.APIURL)

	if cfg.Token == "" {
		token, err := api.GenerateToken(ctx, stream_api_client.TokenRequest{
			RoomName: cfg.Room,
			UserType: cfg.UserType,
			UserName: cfg.UserName,
			Wallet:   cfg.Wallet,
		})
		if err != nil {
			return nil, fmt.Errorf("request session token: %w", err)
		}
		cfg.Token = token
	}

	var source agenda.Source = api
	if cfg.AgendaFile != "" {
		source = agendafile.NewSource(cfg.AgendaFile)
	}

	channel, err := dialChannel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc, err := NewService(ctx, cfg, source, channel, out)
	if err != nil {
		channel.Close()
		return nil, err
	}
	return svc, nil
}

func dialChannel(ctx context.Context, cfg config.Config) (Channel, error) {
	switch cfg.Transport {
	case config.TransportNATS:
		natsCfg := pushchannel.DefaultNATSConfig()
		natsCfg.URL = cfg.NATSURL
		natsCfg.SubjectPrefix = cfg.NATSSubjectPrefix
		natsCfg.RoomName = cfg.Room
		natsCfg.Identity = cfg.Identity
		return pushchannel.DialNATS(natsCfg)
	default:
		return pushchannel.DialWebSocket(ctx, pushchannel.DefaultWebSocketConfig(cfg.WebSocketURL))
	}
}

// NewService fetches the agenda and wires the session, notifier, addon tracker and status server.
func NewService(ctx context.Context, cfg config.Config, source agenda.Source, channel Channel, out io.Writer) (*Service, error) {
	items, err := source.FetchAgenda(ctx, cfg.Room)
	if err != nil {
		return nil, fmt.Errorf("fetch agenda: %w", err)
	}

	sinks := []notify.Sink{notify.LogSink{}}
	if out != nil {
		sinks = append(sinks, notify.NewWriterSink(out))
	}
	notifier := notify.NewNotifier(cfg.UserType, nil, sinks...)

	session := agenda.NewSession(agenda.Config{
		RoomName:    cfg.Room,
		Identity:    cfg.Identity,
		Token:       cfg.Token,
		SyncTimeout: cfg.SyncTimeout,
	}, channel, agenda.NewAgenda(items), notifier.Dispatch)

	tracker := addons.NewTracker()

	svc := &Service{
		cfg:          cfg,
		channel:      channel,
		session:      session,
		addons:       tracker,
		detachAddons: tracker.Attach(channel),
	}
	if cfg.StatusPort > 0 {
		svc.statusServer = status.NewServer(session, tracker).HTTPServer(cfg.StatusPort)
	}

	log.Info().
		Str("room", cfg.Room).
		Str("identity", cfg.Identity).
		Str("transport", cfg.Transport).
		Int("items", len(items)).
		Msg("agenda follower ready")

	return svc, nil
}

// Session exposes the underlying agenda session.
func (s *Service) Session() *agenda.Session {
	return s.session
}

// Addons exposes the addon tracker.
func (s *Service) Addons() *addons.Tracker {
	return s.addons
}

// Start runs the session until ctx is done, the channel drops, or the initial sync times out.
func (s *Service) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	channelLost := make(chan struct{})
	if d, ok := s.channel.(interface{ Done() <-chan struct{} }); ok {
		go func() {
			select {
			case <-d.Done():
				close(channelLost)
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	if s.statusServer != nil {
		go func() {
			log.Info().Str("addr", s.statusServer.Addr).Msg("status server starting")
			if err := s.statusServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("status server failed")
			}
		}()
	}

	err := s.session.Run(ctx)

	select {
	case <-channelLost:
		if err == nil {
			err = pushchannel.ErrChannelClosed
			if e, ok := s.channel.(interface{ Err() error }); ok && e.Err() != nil {
				err = e.Err()
			}
		}
	default:
	}

	s.Stop()
	return err
}

// Stop detaches listeners, closes the push channel and shuts down the status server.
func (s *Service) Stop() {
	s.detachAddons()

	if err := s.channel.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close push channel")
	}

	if s.statusServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.statusServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("status server shutdown failed")
		}
	}

	log.Info().Str("room", s.cfg.Room).Msg("agenda follower stopped")
}
