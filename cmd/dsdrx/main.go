package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dbehnke/dsd-nexus/pkg/artifact"
	"github.com/dbehnke/dsd-nexus/pkg/config"
	"github.com/dbehnke/dsd-nexus/pkg/database"
	"github.com/dbehnke/dsd-nexus/pkg/dibit"
	"github.com/dbehnke/dsd-nexus/pkg/dispatch"
	"github.com/dbehnke/dsd-nexus/pkg/event"
	"github.com/dbehnke/dsd-nexus/pkg/iden"
	"github.com/dbehnke/dsd-nexus/pkg/logger"
	"github.com/dbehnke/dsd-nexus/pkg/metrics"
	"github.com/dbehnke/dsd-nexus/pkg/mqtt"
	"github.com/dbehnke/dsd-nexus/pkg/protocol"
	"github.com/dbehnke/dsd-nexus/pkg/protocol/dmr"
	"github.com/dbehnke/dsd-nexus/pkg/protocol/dpmr"
	"github.com/dbehnke/dsd-nexus/pkg/protocol/dstar"
	"github.com/dbehnke/dsd-nexus/pkg/protocol/edacs"
	"github.com/dbehnke/dsd-nexus/pkg/protocol/m17"
	"github.com/dbehnke/dsd-nexus/pkg/protocol/nxdn"
	"github.com/dbehnke/dsd-nexus/pkg/protocol/p25p1"
	"github.com/dbehnke/dsd-nexus/pkg/protocol/p25p2"
	"github.com/dbehnke/dsd-nexus/pkg/protocol/x2tdma"
	"github.com/dbehnke/dsd-nexus/pkg/protocol/ysf"
	"github.com/dbehnke/dsd-nexus/pkg/radioid"
	"github.com/dbehnke/dsd-nexus/pkg/runtime"
	"github.com/dbehnke/dsd-nexus/pkg/syncdet"
	"github.com/dbehnke/dsd-nexus/pkg/trunk"
	"github.com/dbehnke/dsd-nexus/pkg/web"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildTime = "unknown"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	validateOnly := flag.Bool("validate", false, "Validate configuration and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dsd-nexus %s\n", version)
		fmt.Printf("Git Commit: %s\n", gitCommit)
		fmt.Printf("Built: %s\n", buildTime)
		os.Exit(0)
	}

	log := logger.New(logger.Config{Level: "info", Format: "text"})
	log.Info("Starting dsd-nexus",
		logger.String("version", version),
		logger.String("commit", gitCommit),
		logger.String("build_time", buildTime))

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Error("Failed to load configuration", logger.Error(err))
		os.Exit(1)
	}

	if *validateOnly {
		log.Info("Configuration is valid")
		os.Exit(0)
	}

	log.Info("Configuration loaded successfully", logger.String("config_file", *configFile))

	log = logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log.Debug("Debug logging enabled")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("dsd-nexus exited with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("dsd-nexus stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	metricsCollector := metrics.NewCollector()

	db, err := database.NewDB(database.Config{Path: cfg.Database.Path}, log.WithComponent("database"))
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	callRepo := database.NewCallRecordRepository(db.GetDB())
	dmrUserRepo := database.NewDMRUserRepository(db.GetDB())
	log.Info("Database initialized", logger.String("path", cfg.Database.Path))

	var radioIDSyncer *radioid.Syncer
	if cfg.RadioID.Enabled {
		radioIDSyncer = radioid.NewSyncer(dmrUserRepo, log.WithComponent("radioid"))
	}

	evPub := event.NewPublisher(event.DefaultRingSize)

	ioHooks := runtime.NopIOHooks{Log: log.WithComponent("io")}
	hooks := &tunerHooks{io: ioHooks}

	sm := trunk.New(trunk.Config{
		TrunkEnabled:       cfg.Trunk.Enabled,
		Hangtime:           cfg.Trunk.Hangtime,
		RetuneBackoff:      cfg.Trunk.RetuneBackoff,
		CCHuntGrace:        cfg.Trunk.CCHuntGrace,
		ForceReleaseMargin: cfg.Trunk.ForceReleaseMargin,
		GrantVoiceTimeout:  cfg.Trunk.GrantVoiceTimeout,
		TEDSps:             cfg.Receiver.TEDSps,
	}, trunk.Policy{
		FollowGroups:     cfg.Trunk.FollowGroups,
		FollowPrivate:    cfg.Trunk.FollowPrivate,
		FollowData:       cfg.Trunk.FollowData,
		FollowEncrypted:  cfg.Trunk.FollowEncrypted,
		PreferCandidates: cfg.Trunk.PreferCandidates,
		LCWRetune:        cfg.Trunk.LCWRetune,
	}, hooks, cfg.Trunk.PrimaryCCFreqHz)
	for _, freq := range cfg.Trunk.CandidateFreqsHz {
		sm.AddCandidateCC(freq)
	}
	if cfg.Iden.BandPlanFile != "" {
		if err := iden.ImportFromFile(sm.Iden, cfg.Iden.BandPlanFile); err != nil {
			return fmt.Errorf("iden: %w", err)
		}
		log.Info("Band plan imported", logger.String("file", cfg.Iden.BandPlanFile))
	}

	dispatchTable, enabled := buildDispatchTable(cfg.Receiver.Protocols)
	log.Info("Protocol handlers registered", logger.String("protocols", enabled))

	patterns := filterPatterns(syncdet.DefaultPatterns(), cfg.Receiver.SyncTolerance)
	detector := syncdet.New(patterns)

	source, err := buildSource(cfg.Receiver)
	if err != nil {
		return fmt.Errorf("receiver source: %w", err)
	}

	artifacts, err := buildArtifacts(cfg.Receiver.Artifacts)
	if err != nil {
		return fmt.Errorf("artifacts: %w", err)
	}
	defer artifacts.Close(log)

	var mqttPublisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		mqttPublisher = mqtt.New(mqtt.Config{
			Enabled:     cfg.MQTT.Enabled,
			Broker:      cfg.MQTT.Broker,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			QoS:         cfg.MQTT.QoS,
			Retained:    cfg.MQTT.Retained,
		}, log.WithComponent("mqtt"))
	}

	webServer := web.NewServer(cfg.Web, log.WithComponent("web")).
		WithTrunk(sm).
		WithEvents(evPub).
		WithCallRecordRepo(callRepo)

	metricsServer := metrics.NewServer(metrics.Config{
		Enabled: cfg.Metrics.Enabled,
		Host:    cfg.Metrics.Host,
		Port:    cfg.Metrics.Port,
		Path:    cfg.Metrics.Path,
	}, metricsCollector, log.WithComponent("metrics"))

	decode := newDecodeFunc(dispatchTable, metricsCollector, artifacts, mqttPublisher, evPub)

	supervisor := runtime.New(source, detector, decode, webServer.Start, log.WithComponent("runtime"))

	g, gctx := errgroup.WithContext(ctx)

	if radioIDSyncer != nil {
		g.Go(func() error {
			radioIDSyncer.Start(gctx)
			return nil
		})
	}

	if mqttPublisher != nil {
		g.Go(func() error {
			if err := mqttPublisher.Start(gctx); err != nil && err != context.Canceled {
				return fmt.Errorf("mqtt: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		if err := metricsServer.Start(gctx); err != nil && err != context.Canceled {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return supervisor.Run(gctx)
	})

	waitErr := g.Wait()

	if mqttPublisher != nil {
		mqttPublisher.Stop()
	}

	if waitErr != nil && waitErr != context.Canceled {
		return waitErr
	}
	return nil
}

// tunerHooks bridges trunk.Hooks to runtime.IOHooks, the only IO
// collaborator this repository's wiring layer owns; a real front end
// would replace runtime.NopIOHooks with a concrete tuner driver.
type tunerHooks struct {
	io runtime.IOHooks
}

func (h *tunerHooks) TuneToFreq(freqHz uint64, tedSps int) {
	h.io.TuneToFreq(freqHz, 0)
}

func (h *tunerHooks) TuneToCC(freqHz uint64, tedSps int) {
	h.io.TuneToFreq(freqHz, 0)
}

func (h *tunerHooks) ReturnToCC() {}

// buildDispatchTable registers a FrameHandler per enabled protocol
// family. An empty enabled list registers every protocol, per
// ReceiverConfig.Protocols' documented default.
func buildDispatchTable(enabled []string) (*dispatch.Table, string) {
	want := make(map[string]bool, len(enabled))
	for _, p := range enabled {
		want[p] = true
	}
	all := len(enabled) == 0

	t := dispatch.NewTable()
	var registered []string

	if all || want["p25p1"] {
		h := p25p1.New()
		t.Register(syncdet.SyncP25P1Plus, h)
		t.Register(syncdet.SyncP25P1Minus, h)
		registered = append(registered, "p25p1")
	}
	if all || want["p25p2"] {
		facch := p25p2.New(p25p2.XCHFACCH)
		sacch := p25p2.New(p25p2.XCHSACCH)
		t.Register(syncdet.SyncP25P2Plus, facch)
		t.Register(syncdet.SyncP25P2Minus, sacch)
		registered = append(registered, "p25p2")
	}
	if all || want["dmr"] {
		csbk := dmr.New()
		voice := dmr.NewVoiceHandler()
		t.Register(syncdet.SyncDMRBSDataPlus, csbk)
		t.Register(syncdet.SyncDMRBSDataMinus, csbk)
		t.Register(syncdet.SyncDMRRCData, csbk)
		t.Register(syncdet.SyncDMRMSData, csbk)
		t.Register(syncdet.SyncDMRBSVoicePlus, voice)
		t.Register(syncdet.SyncDMRBSVoiceMinus, voice)
		t.Register(syncdet.SyncDMRMSVoice, voice)
		registered = append(registered, "dmr")
	}
	if all || want["nxdn"] {
		h := nxdn.New()
		t.Register(syncdet.SyncNXDNPlus, h)
		t.Register(syncdet.SyncNXDNMinus, h)
		registered = append(registered, "nxdn")
	}
	if all || want["dstar"] {
		h := dstar.New()
		t.Register(syncdet.SyncDSTARPlus, h)
		t.Register(syncdet.SyncDSTARMinus, h)
		t.Register(syncdet.SyncDSTARHdrPlus, h)
		t.Register(syncdet.SyncDSTARHdrMinus, h)
		registered = append(registered, "dstar")
	}
	if all || want["ysf"] {
		h := ysf.New()
		t.Register(syncdet.SyncYSFPlus, h)
		t.Register(syncdet.SyncYSFMinus, h)
		registered = append(registered, "ysf")
	}
	if all || want["m17"] {
		h := m17.New()
		t.Register(syncdet.SyncM17Str, h)
		t.Register(syncdet.SyncM17Lsf, h)
		t.Register(syncdet.SyncM17Brt, h)
		t.Register(syncdet.SyncM17Pkt, h)
		t.Register(syncdet.SyncM17Pre, h)
		registered = append(registered, "m17")
	}
	if all || want["x2tdma"] {
		h := x2tdma.New()
		t.Register(syncdet.SyncX2TDMAData, h)
		t.Register(syncdet.SyncX2TDMAVoice, h)
		registered = append(registered, "x2tdma")
	}
	if all || want["edacs"] {
		h := edacs.New()
		t.Register(syncdet.SyncEdacs, h)
		registered = append(registered, "edacs")
	}
	if all || want["dpmr"] {
		h := dpmr.New()
		t.Register(syncdet.SyncDPMRFS1Plus, h)
		t.Register(syncdet.SyncDPMRFS2Plus, h)
		t.Register(syncdet.SyncDPMRFS3Plus, h)
		t.Register(syncdet.SyncDPMRFS4Plus, h)
		t.Register(syncdet.SyncDPMRFS1Minus, h)
		t.Register(syncdet.SyncDPMRFS2Minus, h)
		t.Register(syncdet.SyncDPMRFS3Minus, h)
		t.Register(syncdet.SyncDPMRFS4Minus, h)
		registered = append(registered, "dpmr")
	}

	out := ""
	for i, name := range registered {
		if i > 0 {
			out += ","
		}
		out += name
	}
	return t, out
}

// filterPatterns returns DefaultPatterns with every entry's tolerance
// overridden to tolerance, when tolerance is positive.
func filterPatterns(patterns []syncdet.Pattern, tolerance int) []syncdet.Pattern {
	if tolerance <= 0 {
		return patterns
	}
	out := make([]syncdet.Pattern, len(patterns))
	for i, p := range patterns {
		p.Tolerance = tolerance
		out[i] = p
	}
	return out
}

func buildSource(cfg config.ReceiverConfig) (dibit.Source, error) {
	switch cfg.Source {
	case "file":
		return dibit.NewFileSource(cfg.InputFile)
	default:
		return dibit.NewLiveSource(os.Stdin), nil
	}
}

// artifactSinks bundles the optional flat-file writers, each nil when
// its config path is empty.
type artifactSinks struct {
	mbe    *artifact.MBEDumpWriter
	lrrp   *artifact.LRRPLogWriter
	events *artifact.EventLogWriter
}

func buildArtifacts(cfg config.ArtifactConfig) (*artifactSinks, error) {
	sinks := &artifactSinks{}
	if cfg.MBEDumpPath != "" {
		w, err := artifact.NewMBEDumpWriter(cfg.MBEDumpPath)
		if err != nil {
			return nil, err
		}
		sinks.mbe = w
	}
	if cfg.LRRPLogPath != "" {
		w, err := artifact.NewLRRPLogWriter(cfg.LRRPLogPath)
		if err != nil {
			return nil, err
		}
		sinks.lrrp = w
	}
	if cfg.EventLogPath != "" {
		w, err := artifact.NewEventLogWriter(cfg.EventLogPath)
		if err != nil {
			return nil, err
		}
		sinks.events = w
	}
	return sinks, nil
}

func (s *artifactSinks) Close(log *logger.Logger) {
	if s.mbe != nil {
		if err := s.mbe.Close(); err != nil {
			log.Warn("mbe dump close error", logger.Error(err))
		}
	}
	if s.lrrp != nil {
		if err := s.lrrp.Close(); err != nil {
			log.Warn("lrrp log close error", logger.Error(err))
		}
	}
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			log.Warn("event log close error", logger.Error(err))
		}
	}
}

// newDecodeFunc closes over the dispatch table and supporting sinks to
// build the per-dibit decode callback runtime.Supervisor drives. Since a
// FrameHandler's six-stage contract needs a fully assembled bit buffer,
// this accumulates one hard-decision bit per dibit between sync
// transitions and dispatches the just-completed frame (tagged with the
// sync type that opened it) the moment a new sync word is confirmed.
func newDecodeFunc(table *dispatch.Table, mc *metrics.Collector, artifacts *artifactSinks, mp *mqtt.Publisher, evPub *event.Publisher) runtime.DecodeFunc {
	var (
		frameSync   syncdet.SyncType
		bits        []byte
		reliability []uint8
	)

	dispatchPending := func() {
		if frameSync == syncdet.SyncNone || len(bits) == 0 {
			return
		}
		res, err := table.Dispatch(dispatch.Frame{SyncType: frameSync, Bits: bits, Reliability: reliability})
		if err != nil {
			return
		}
		mc.CRCResult(fmt.Sprintf("%d", frameSync), res.CRCOK)
		if payload, ok := res.Fields["ambe_payload"].([]byte); ok && artifacts.mbe != nil {
			_ = artifacts.mbe.WriteFrame(payload)
		}
		if res.CRCOK {
			rec := event.Record{Text: fmt.Sprintf("sync_%d decoded", frameSync)}
			if isGrant, _ := res.Fields["is_grant"].(bool); isGrant {
				rec = dmrGrantRecord(res.Fields)
				if mp != nil {
					_ = mp.PublishCallStart(dmrGrantCallStart(res.Fields))
				}
			}
			evPub.Publish(0, rec)
			if artifacts.events != nil {
				_ = artifacts.events.WriteRecord(rec)
			}
		}
	}

	return func(d dibit.Dibit, st syncdet.SyncType) {
		bits = append(bits, byte((d.Value>>7)&0x01))
		reliability = append(reliability, d.Reliability)

		if st == syncdet.SyncNone || st == frameSync {
			return
		}

		dispatchPending()

		mc.SyncHit(fmt.Sprintf("%d", st))
		if mp != nil {
			_ = mp.PublishTune(mqtt.TuneEvent{Role: fmt.Sprintf("sync_%d", st)})
		}

		frameSync = st
		bits = bits[:0]
		reliability = reliability[:0]
	}
}

// dmrdFromGrantFields assembles a protocol.DMRDPacket from a decoded CSBK
// grant's result fields, the shape the decode worker hands to the event
// log and MQTT publisher for DMR traffic.
func dmrdFromGrantFields(fields map[string]any) *protocol.DMRDPacket {
	src, _ := fields["source"].(uint32)
	dst, _ := fields["target"].(uint32)
	return &protocol.DMRDPacket{
		SourceID:      src,
		DestinationID: dst,
		FrameType:     protocol.FrameTypeDataSync,
		CallType:      protocol.CallTypeGroup,
		Timeslot:      protocol.Timeslot1,
	}
}

// dmrGrantRecord renders a CSBK channel grant as an event-log record.
func dmrGrantRecord(fields map[string]any) event.Record {
	p := dmrdFromGrantFields(fields)
	return event.Record{
		Timestamp: time.Now(),
		Source:    p.SourceID,
		Target:    p.DestinationID,
		Text:      fmt.Sprintf("DMR grant lcn=%v svc_type=%v", fields["lcn"], fields["svc_type"]),
	}
}

// dmrGrantCallStart renders a CSBK channel grant as an MQTT call-start
// announcement.
func dmrGrantCallStart(fields map[string]any) mqtt.CallStartEvent {
	p := dmrdFromGrantFields(fields)
	return mqtt.CallStartEvent{
		Protocol:  "dmr",
		SourceID:  p.SourceID,
		DestID:    p.DestinationID,
		Slot:      p.Timeslot,
		Timestamp: time.Now(),
	}
}
