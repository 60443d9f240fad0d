package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sort"
	"strings"
	"sync"

	"log/slog"

	"ftumix/internal/control"
	"ftumix/internal/daemon"
	"ftumix/internal/logging"
	"ftumix/internal/mixer"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("Ftumix", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"))
				continue
			}
			s.track(conn)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.untrack(c)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	_ = conn.Close()
}

// Close stops the server and removes the socket file. Live connections are
// severed so an idle client cannot stall daemon shutdown.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) mixer() (*mixer.Mixer, error) {
	mix := s.daemon.Mixer()
	if mix == nil {
		return nil, errors.New("mixer not ready")
	}
	return mix, nil
}

func (s *service) Ping(_ PingRequest, resp *PingResponse) error {
	resp.PID = os.Getpid()
	if mix := s.daemon.Mixer(); mix != nil {
		resp.Card = cardInfo(mix.Card())
	}
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.Card = cardInfo(status.Card)
	resp.Channels = status.Channels
	resp.LockPath = status.LockPath
	resp.SocketPath = status.SocketPath
	resp.PID = status.PID
	resp.StartedAt = status.StartedAt
	resp.Watcher = status.Watcher
	resp.Hotplug = status.Hotplug
	resp.LastSeq = status.LastSeq
	resp.Dependencies = make([]DependencyStatus, 0, len(status.Dependencies))
	for _, dep := range status.Dependencies {
		resp.Dependencies = append(resp.Dependencies, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Info("shutdown requested via IPC")
	s.daemon.RequestShutdown()
	resp.Stopping = true
	return nil
}

func (s *service) Volume(req VolumeRequest, resp *VolumeResponse) error {
	mix, err := s.mixer()
	if err != nil {
		return err
	}
	domain, err := parseDomain(req.Domain)
	if err != nil {
		return err
	}
	volume, err := mix.Volume(s.ctx, domain, routeFromWire(req.Input, req.Output))
	if err != nil {
		return err
	}
	resp.Volume = volume
	return nil
}

func (s *service) SetVolume(req SetVolumeRequest, resp *SetVolumeResponse) error {
	mix, err := s.mixer()
	if err != nil {
		return err
	}
	domain, err := parseDomain(req.Domain)
	if err != nil {
		return err
	}
	return mix.SetVolume(s.ctx, domain, routeFromWire(req.Input, req.Output), req.Volume)
}

func (s *service) Routes(req RoutesRequest, resp *RoutesResponse) error {
	mix, err := s.mixer()
	if err != nil {
		return err
	}
	domains, err := requestedDomains(req.Domain)
	if err != nil {
		return err
	}

	channels := mix.Channels()
	resp.Channels = channels
	resp.Routes = make([]RouteVolume, 0, len(domains)*channels*channels)
	for _, domain := range domains {
		for input := 0; input < channels; input++ {
			for output := 0; output < channels; output++ {
				route := control.RouteID{Output: output, Input: input}
				volume, err := mix.Volume(s.ctx, domain, route)
				if err != nil {
					return err
				}
				resp.Routes = append(resp.Routes, RouteVolume{
					Domain: domain.String(),
					Input:  input + 1,
					Output: output + 1,
					Volume: volume,
				})
			}
		}
	}
	return nil
}

func (s *service) Effects(_ EffectsRequest, resp *EffectsResponse) error {
	mix, err := s.mixer()
	if err != nil {
		return err
	}
	values, err := mix.Effects(s.ctx)
	if err != nil {
		return err
	}

	descs := mix.EffectDescs()
	resp.Effects = make([]EffectState, 0, len(descs))
	for _, desc := range descs {
		key := control.EffectKey(desc.Name)
		state := EffectState{
			Key:       key,
			Name:      desc.Name,
			HasVolume: desc.HasVolume,
			EnumItems: append([]string(nil), desc.EnumItems...),
		}
		if value, ok := values[key]; ok {
			state.Volume = value.Volume
			state.Item = value.Item
		}
		resp.Effects = append(resp.Effects, state)
	}
	sort.Slice(resp.Effects, func(i, j int) bool {
		return resp.Effects[i].Key < resp.Effects[j].Key
	})
	return nil
}

func (s *service) DisableEffects(_ DisableEffectsRequest, _ *DisableEffectsResponse) error {
	mix, err := s.mixer()
	if err != nil {
		return err
	}
	return mix.DisableEffects(s.ctx)
}

func (s *service) MuteMostDigital(_ MuteMostDigitalRequest, _ *MuteMostDigitalResponse) error {
	mix, err := s.mixer()
	if err != nil {
		return err
	}
	return mix.MuteMostDigitalRoutes(s.ctx)
}

func (s *service) MuteAnalog(_ MuteAnalogRequest, _ *MuteAnalogResponse) error {
	mix, err := s.mixer()
	if err != nil {
		return err
	}
	return mix.MuteAnalogRoutes(s.ctx)
}

func (s *service) PassThrough(_ PassThroughRequest, _ *PassThroughResponse) error {
	mix, err := s.mixer()
	if err != nil {
		return err
	}
	return mix.PassThroughInputs(s.ctx)
}

func (s *service) Master(_ MasterRequest, resp *MasterResponse) error {
	mix, err := s.mixer()
	if err != nil {
		return err
	}
	volume, err := mix.MasterVolume(s.ctx)
	if err != nil {
		return err
	}
	resp.Volume = volume
	return nil
}

func (s *service) SetMaster(req SetMasterRequest, _ *SetMasterResponse) error {
	mix, err := s.mixer()
	if err != nil {
		return err
	}
	return mix.SetMasterVolume(s.ctx, req.Volume)
}

func (s *service) Links(_ LinksRequest, resp *LinksResponse) error {
	mix, err := s.mixer()
	if err != nil {
		return err
	}
	links := mix.Links()
	channels := mix.Channels()
	resp.Links = make([]LinkPair, 0, channels)
	for output := 0; output < channels; output++ {
		pair := LinkPair{Output: output + 1}
		if target, ok := links[output]; ok {
			pair.Target = target + 1
		}
		resp.Links = append(resp.Links, pair)
	}
	return nil
}

func (s *service) SetLink(req SetLinkRequest, _ *SetLinkResponse) error {
	mix, err := s.mixer()
	if err != nil {
		return err
	}
	return mix.SetLink(req.Output-1, req.Target-1)
}

func (s *service) ClearLink(req ClearLinkRequest, _ *ClearLinkResponse) error {
	mix, err := s.mixer()
	if err != nil {
		return err
	}
	return mix.ClearLink(req.Output - 1)
}

func (s *service) SavePreset(req SavePresetRequest, resp *SavePresetResponse) error {
	path, err := s.daemon.SavePreset(s.ctx, req.Path)
	if err != nil {
		return err
	}
	resp.Path = path
	return nil
}

func (s *service) LoadPreset(req LoadPresetRequest, resp *LoadPresetResponse) error {
	path, err := s.daemon.LoadPreset(s.ctx, req.Path)
	if err != nil {
		return err
	}
	resp.Path = path
	return nil
}

func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	mix, err := s.mixer()
	if err != nil {
		return err
	}
	changes, lastSeq := mix.ChangesSince(req.Since)
	resp.LastSeq = lastSeq
	resp.Events = make([]ChangeEvent, 0, len(changes))
	for _, change := range changes {
		resp.Events = append(resp.Events, changeEvent(change))
	}
	return nil
}

func changeEvent(change mixer.Change) ChangeEvent {
	event := ChangeEvent{
		Seq:    change.Seq,
		Origin: string(change.Origin),
		At:     change.At,
	}
	event.Routes = make([]RouteRef, 0, change.Routes.Len())
	for _, route := range change.Routes.Analog {
		event.Routes = append(event.Routes, routeRef(control.Analog, route))
	}
	for _, route := range change.Routes.Digital {
		event.Routes = append(event.Routes, routeRef(control.Digital, route))
	}
	return event
}

func routeRef(domain control.Domain, route control.RouteID) RouteRef {
	return RouteRef{
		Domain: domain.String(),
		Input:  route.Input + 1,
		Output: route.Output + 1,
	}
}

func cardInfo(card control.Card) CardInfo {
	return CardInfo{Index: card.Index, ID: card.ID, Name: card.Name}
}

// routeFromWire converts 1-based wire channels to the 0-based route id.
// Out-of-range wire values become invalid ids the mixer rejects.
func routeFromWire(input, output int) control.RouteID {
	return control.RouteID{Output: output - 1, Input: input - 1}
}

func parseDomain(name string) (control.Domain, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "analog":
		return control.Analog, nil
	case "digital":
		return control.Digital, nil
	default:
		return 0, fmt.Errorf("unknown domain %q (want analog or digital)", name)
	}
}

func requestedDomains(name string) ([]control.Domain, error) {
	if strings.TrimSpace(name) == "" {
		return []control.Domain{control.Analog, control.Digital}, nil
	}
	domain, err := parseDomain(name)
	if err != nil {
		return nil, err
	}
	return []control.Domain{domain}, nil
}
