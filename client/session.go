package client

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"voxelarena/logging"
	"voxelarena/protocol"
)

// Sender 把一条消息交给传输层（非阻塞）
type Sender interface {
	Send(msgType string, payload any) error
}

// Options 会话参数
type Options struct {
	EmitInterval time.Duration
	Tuning       Tuning
	Spawn        protocol.Vec3
	Factory      BlockFactory
}

func DefaultOptions() Options {
	return Options{
		EmitInterval: 100 * time.Millisecond,
		Tuning:       DefaultTuning(),
		Spawn:        protocol.Vec3{Y: 2},
		Factory:      DefaultBlockFactory(),
	}
}

// Session 客户端同步状态机：身份引导、地形实例化、远端对齐、节流上报。
// 不做任何 IO，也不加锁；由调用方保证在单个协程内使用。
type Session struct {
	identity string
	color    string

	terrain []TerrainInstance
	probe   *TerrainProbe
	factory BlockFactory

	remotes *RemoteEntityCache
	avatar  *Controller
	emitter *Emitter
	scene   Scene
	out     Sender
	log     *zap.SugaredLogger
}

func NewSession(out Sender, scene Scene, opts Options) *Session {
	if scene == nil {
		scene = NopScene{}
	}
	s := &Session{
		factory: opts.Factory,
		remotes: NewRemoteEntityCache(scene),
		avatar:  NewController(opts.Spawn, opts.Tuning),
		scene:   scene,
		out:     out,
		log:     logging.Named("session"),
	}
	s.probe = NewTerrainProbe(opts.Factory.Shape, nil)
	s.emitter = NewEmitter(opts.EmitInterval, func() protocol.Vec3 { return s.avatar.Position }, s.emitPose)
	return s
}

// Identity 已分配的身份；为空表示尚未分配
func (s *Session) Identity() string { return s.identity }

func (s *Session) Color() string { return s.color }

func (s *Session) Avatar() *Controller { return s.avatar }

func (s *Session) Remotes() *RemoteEntityCache { return s.remotes }

func (s *Session) Terrain() []TerrainInstance { return s.terrain }

// Reset 新连接开始前清空与上一条连接绑定的状态（身份按连接分配）
func (s *Session) Reset() {
	s.identity = ""
	s.color = ""
	s.remotes.Clear()
	s.emitter.Reset()
}

// OnConnect 连接建立：未缓存身份时请求分配
func (s *Session) OnConnect() error {
	if s.identity != "" {
		return nil
	}
	return s.out.Send(protocol.TypeIDRequest, nil)
}

// Handle 处理一条协调端消息
func (s *Session) Handle(raw []byte) error {
	env, err := protocol.Decode(raw)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	switch env.Type {
	case protocol.TypeIDResponse:
		var res protocol.IDResponse
		if err := env.Into(&res); err != nil {
			return fmt.Errorf("id_res: %w", err)
		}
		s.identity, s.color = res.Identity, res.Color
		s.scene.SetLocalColor(res.Color)
		s.log.Infof("assigned identity %s color %s", res.Identity, res.Color)
	case protocol.TypeLoadup:
		var t protocol.Terrain
		if err := env.Into(&t); err != nil {
			return fmt.Errorf("loadup: %w", err)
		}
		s.loadTerrain(t)
	case protocol.TypeState:
		var table protocol.StateTable
		if err := env.Into(&table); err != nil {
			return fmt.Errorf("state: %w", err)
		}
		s.remotes.Reconcile(table, s.identity)
	case protocol.TypeDeparted:
		var d protocol.Departed
		if err := env.Into(&d); err != nil {
			return fmt.Errorf("departed: %w", err)
		}
		s.remotes.Remove(d.Identity)
	case protocol.TypeGreeting:
		var greeting string
		_ = env.Into(&greeting)
		s.log.Debugf("greeting: %s", greeting)
	case protocol.TypeError:
		var e protocol.ErrorPayload
		_ = env.Into(&e)
		s.log.Warnf("coordinator rejected message: %s (%s)", e.Code, e.Message)
	default:
		s.log.Debugf("ignoring message type %q", env.Type)
	}
	return nil
}

// loadTerrain 每个地形条目实例化一个可渲染实例
func (s *Session) loadTerrain(t protocol.Terrain) {
	s.terrain = s.factory.InstantiateTerrain(t)
	s.probe = NewTerrainProbe(s.factory.Shape, s.terrain)
	for _, inst := range s.terrain {
		s.scene.AddTerrain(inst)
	}
	s.log.Infof("terrain loaded: %d blocks", len(s.terrain))
}

// Step 推进本地模拟，并在身份分配后按节流策略上报位姿
func (s *Session) Step(now time.Time, dt float64) {
	s.avatar.Step(dt, s.probe)
	if s.identity == "" {
		return
	}
	s.emitter.Request(now)
	s.emitter.Flush(now)
}

func (s *Session) emitPose(pos protocol.Vec3) {
	st := protocol.PlayerState{Identity: s.identity, Color: s.color, Position: &pos}
	if err := s.out.Send(protocol.TypeClientUpdate, st); err != nil {
		s.log.Debugf("emit pose: %v", err)
	}
}
