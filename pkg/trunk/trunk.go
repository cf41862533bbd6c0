// Package trunk implements the C5 trunking control-channel state machine:
// grant admission gating, retune backoff, hangtime/force-release, control
// channel hunting, and the patch/regroup table. It owns no IO directly —
// all tuner/radio actions are emitted through a Hooks vtable so the state
// machine is fully unit-testable in isolation, the same separation the
// teacher's pkg/bridge.Router used between routing decisions and the
// peer/UDP transport that actually moved packets.
package trunk

import (
	"fmt"

	"github.com/dbehnke/dsd-nexus/pkg/iden"
	"github.com/dbehnke/dsd-nexus/pkg/rxerr"
)

// Service option bits carried on group/individual channel grants.
const (
	SvcData      uint8 = 0x10
	SvcEncrypted uint8 = 0x40
)

// Role is the state machine's coarse position in its state diagram.
type Role int

const (
	RoleOnCC Role = iota
	RoleTunedVC
	RoleHunting
)

// Policy is the set of follow/refuse flags gating grant admission.
type Policy struct {
	FollowGroups     bool
	FollowPrivate    bool
	FollowData       bool
	FollowEncrypted  bool
	PreferCandidates bool
	LCWRetune        bool
}

// Config holds the timing knobs named in spec §4.5 / §7's config keys.
type Config struct {
	TrunkEnabled       bool
	Hangtime           float64 // seconds
	RetuneBackoff      float64 // seconds
	CCHuntGrace        float64 // seconds
	ForceReleaseMargin float64 // seconds
	GrantVoiceTimeout  float64 // seconds ("grant_voice_to_s")
	TEDSps             int
}

// Hooks is the vtable the state machine drives; implementations talk to
// the actual tuner/demodulator.
type Hooks interface {
	TuneToFreq(freqHz uint64, tedSps int)
	TuneToCC(freqHz uint64, tedSps int)
	ReturnToCC()
}

// NopHooks is a Hooks implementation that does nothing, useful for tests
// and for running the state machine with no attached radio.
type NopHooks struct{}

func (NopHooks) TuneToFreq(uint64, int) {}
func (NopHooks) TuneToCC(uint64, int)   {}
func (NopHooks) ReturnToCC()            {}

// StateMachine is one system's trunk follower.
type StateMachine struct {
	cfg    Config
	Policy Policy
	hooks  Hooks

	Iden       *iden.Table
	Patch      *PatchTable
	backoff    *retuneBackoff
	candidates *candidateRing
	encLockout map[uint32]bool

	Role   Role
	ccFreq uint64
	vcFreq [2]uint64

	lastTuneTime  [2]float64
	lastVoiceSync [2]float64
	lastCCSync    float64

	ForceRelease bool
}

// New builds a trunk state machine with the given config, policy and
// hooks. primaryCC is the known-good control channel frequency to return
// to once the candidate ring is exhausted.
func New(cfg Config, policy Policy, hooks Hooks, primaryCC uint64) *StateMachine {
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &StateMachine{
		cfg:        cfg,
		Policy:     policy,
		hooks:      hooks,
		Iden:       iden.NewTable(),
		Patch:      NewPatchTable(),
		backoff:    newRetuneBackoff(),
		candidates: newCandidateRing(),
		encLockout: make(map[uint32]bool),
		Role:       RoleOnCC,
		ccFreq:     primaryCC,
	}
}

// AddCandidateCC enqueues an alternate control channel frequency to try
// when the primary CC goes stale.
func (sm *StateMachine) AddCandidateCC(freqHz uint64) {
	sm.candidates.Add(freqHz)
}

// MarkEncLockout flags a group ID ("DE" group) as permanently un-followed.
func (sm *StateMachine) MarkEncLockout(gid uint32) {
	sm.encLockout[gid] = true
}

// OnCCSync reports a confirmed control-channel sync, replenishing CC-hunt
// grace and restoring on_CC role.
func (sm *StateMachine) OnCCSync(freqHz uint64, now float64) {
	sm.ccFreq = freqHz
	sm.lastCCSync = now
	sm.Role = RoleOnCC
}

// OnIdenUpdate applies a band-plan identifier update.
func (sm *StateMachine) OnIdenUpdate(idx int, e iden.Entry) error {
	return sm.Iden.Update(idx, e)
}

// OnGroupGrant processes a group channel grant per spec §4.5's gating.
// slot is accepted to mirror the grant PDU's wire shape but is not
// forwarded: admitGrant re-derives the TDMA slot from the channel
// identifier via sm.Iden.Frequency, which is authoritative over
// whatever the grant's own slot field happened to say.
func (sm *StateMachine) OnGroupGrant(channelID uint16, svcOpts uint8, dst, src uint32, slot int, now float64) error {
	return sm.admitGrant(false, channelID, svcOpts, dst, now)
}

// OnIndivGrant processes an individual (private) channel grant. See
// OnGroupGrant's comment on slot.
func (sm *StateMachine) OnIndivGrant(channelID uint16, svcOpts uint8, dst, src uint32, slot int, now float64) error {
	return sm.admitGrant(true, channelID, svcOpts, dst, now)
}

// admitGrant implements invariants I3..I5: trunk must be enabled, the
// identifier must resolve (trust >= provisional), the grant's class and
// service-option bits must clear policy, the resolved frequency must
// differ from the current CC, the (freq,slot) must not be in retune
// backoff, and the target group must not be encryption-locked-out. The
// TDMA slot is always the one sm.Iden.Frequency resolves from channelID,
// never a caller-supplied value.
func (sm *StateMachine) admitGrant(individual bool, channelID uint16, svcOpts uint8, dst uint32, now float64) error {
	if !sm.cfg.TrunkEnabled {
		return fmt.Errorf("trunk: grant refused: trunking disabled")
	}

	freqHz, tdmaSlot, err := sm.Iden.Frequency(channelID)
	if err != nil {
		return fmt.Errorf("trunk: grant refused: %w", err)
	}

	classOK := sm.Policy.FollowGroups
	if individual {
		classOK = sm.Policy.FollowPrivate
	}
	if !classOK {
		return fmt.Errorf("trunk: grant refused: call class not followed")
	}
	if svcOpts&SvcData != 0 && !sm.Policy.FollowData {
		return fmt.Errorf("trunk: grant refused: data calls not followed")
	}
	if svcOpts&SvcEncrypted != 0 && !sm.Policy.FollowEncrypted {
		return fmt.Errorf("trunk: grant refused: encrypted calls not followed")
	}

	if freqHz == sm.ccFreq {
		return fmt.Errorf("trunk: grant refused: resolved frequency is current CC")
	}

	if sm.backoff.Active(freqHz, tdmaSlot, now) {
		return fmt.Errorf("trunk: grant refused: (freq,slot) in retune backoff")
	}

	if sm.encLockout[dst] {
		return fmt.Errorf("trunk: grant refused: %w", rxerr.ErrEncryptedLockout)
	}

	sm.vcFreq[tdmaSlot] = freqHz
	sm.lastTuneTime[tdmaSlot] = now
	sm.lastVoiceSync[tdmaSlot] = now
	sm.Role = RoleTunedVC
	sm.hooks.TuneToFreq(freqHz, sm.cfg.TEDSps)
	return nil
}

// OnMACActive reports MAC-layer activity on a slot, which counts as
// proof-of-life for hangtime and retune-backoff purposes.
func (sm *StateMachine) OnMACActive(slot int, now float64) {
	if slot < 0 || slot > 1 {
		return
	}
	sm.lastVoiceSync[slot] = now
}

// OnVoiceSync reports a confirmed voice sync on a slot.
func (sm *StateMachine) OnVoiceSync(slot int, now float64) {
	if slot < 0 || slot > 1 {
		return
	}
	sm.lastVoiceSync[slot] = now
}

// OnRelease processes a call release on a slot. If the grant has been
// tuned at least grant_voice_to_s with no MAC/voice activity observed,
// the (freq,slot) is placed into retune backoff.
func (sm *StateMachine) OnRelease(slot int, now float64) {
	if slot < 0 || slot > 1 {
		return
	}
	freqHz := sm.vcFreq[slot]
	if freqHz == 0 {
		return
	}
	dtSinceTune := now - sm.lastTuneTime[slot]
	noActivity := sm.lastVoiceSync[slot] <= sm.lastTuneTime[slot]
	if dtSinceTune >= sm.cfg.GrantVoiceTimeout && noActivity {
		sm.backoff.Set(freqHz, slot, now+sm.cfg.RetuneBackoff)
	}
	sm.vcFreq[slot] = 0
	if sm.vcFreq[0] == 0 && sm.vcFreq[1] == 0 {
		sm.Role = RoleOnCC
	}
}

// OnPatchAdd records sg/wgid in the patch/regroup table.
func (sm *StateMachine) OnPatchAdd(sg, wgid uint32) error {
	return sm.Patch.AddWGID(sg, wgid)
}

// OnPatchDelete removes wgid from sg's patch list.
func (sm *StateMachine) OnPatchDelete(sg, wgid uint32) {
	sm.Patch.RemoveWGID(sg, wgid)
}

// Tick drives time-based transitions: hangtime/force-release on tuned
// voice channels, and control-channel hunting when the primary CC has
// gone stale beyond cc_hunt_grace_s.
func (sm *StateMachine) Tick(now float64) {
	for slot := 0; slot < 2; slot++ {
		if sm.vcFreq[slot] == 0 {
			continue
		}
		stale := now - sm.lastVoiceSync[slot]
		if stale > sm.cfg.Hangtime+sm.cfg.ForceReleaseMargin || sm.ForceRelease {
			sm.hooks.ReturnToCC()
			sm.vcFreq[slot] = 0
		}
	}
	if sm.vcFreq[0] == 0 && sm.vcFreq[1] == 0 && sm.Role == RoleTunedVC {
		sm.Role = RoleOnCC
		sm.ForceRelease = false
	}

	if now-sm.lastCCSync > sm.cfg.CCHuntGrace {
		if freqHz, ok := sm.candidates.Pop(); ok {
			sm.Role = RoleHunting
			sm.hooks.TuneToCC(freqHz, sm.cfg.TEDSps)
		} else {
			sm.Role = RoleOnCC
			sm.hooks.TuneToCC(sm.ccFreq, sm.cfg.TEDSps)
		}
	}
}

// CurrentCC returns the control channel frequency the SM currently
// considers primary.
func (sm *StateMachine) CurrentCC() uint64 {
	return sm.ccFreq
}

// VCFrequency returns the frequency tuned on a slot, or 0 if no voice
// channel is currently tuned there.
func (sm *StateMachine) VCFrequency(slot int) uint64 {
	if slot < 0 || slot > 1 {
		return 0
	}
	return sm.vcFreq[slot]
}
