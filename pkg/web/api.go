package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dbehnke/dsd-nexus/pkg/database"
	"github.com/dbehnke/dsd-nexus/pkg/event"
	"github.com/dbehnke/dsd-nexus/pkg/logger"
	"github.com/dbehnke/dsd-nexus/pkg/trunk"
)

// API handles REST API endpoints exposing the receiver's trunk state
// machine, identifier table, event history, and call-history database —
// the double-buffered snapshot SPEC_FULL.md §3 assigns to pkg/web.
type API struct {
	logger *logger.Logger
	sm     *trunk.StateMachine
	events *event.Publisher
	txRepo *database.CallRecordRepository
}

// NewAPI creates a new API instance.
func NewAPI(log *logger.Logger) *API {
	return &API{logger: log}
}

// SetDeps provides runtime dependencies to the API after construction.
func (a *API) SetDeps(sm *trunk.StateMachine, pub *event.Publisher) {
	a.sm = sm
	a.events = pub
}

// SetCallRecordRepo sets the call-history repository.
func (a *API) SetCallRecordRepo(repo *database.CallRecordRepository) {
	a.txRepo = repo
}

// IdenEntryDTO is a lightweight response for one identifier table slot.
type IdenEntryDTO struct {
	Index         int    `json:"index"`
	Type          int    `json:"type"`
	BaseFreqUnits uint64 `json:"base_freq_units"`
	SpacingUnits  uint32 `json:"spacing_units"`
	TxOffset      int64  `json:"tx_offset"`
	TDMADenom     int    `json:"tdma_denom"`
	Trust         int    `json:"trust"`
}

// TrunkStatusDTO is a lightweight response for the trunk SM's current
// position in its state diagram.
type TrunkStatusDTO struct {
	Role        int      `json:"role"`
	CurrentCC   uint64   `json:"current_cc_hz"`
	VCFrequency []uint64 `json:"vc_freq_hz"` // indexed by slot
}

// PatchEntryDTO is a lightweight response for one supergroup's patch
// table record.
type PatchEntryDTO struct {
	SG      uint32   `json:"sg"`
	Members []uint32 `json:"members"`
	Active  bool     `json:"active"`
}

// EventDTO is a lightweight response for one event-history record.
type EventDTO struct {
	CallID    string `json:"call_id"`
	Timestamp int64  `json:"timestamp"`
	Source    uint32 `json:"source"`
	Target    uint32 `json:"target"`
	Text      string `json:"text"`
	GPS       string `json:"gps,omitempty"`
	Color     string `json:"color,omitempty"`
	Alias     string `json:"alias,omitempty"`
}

// CallRecordDTO is a lightweight response for one persisted call record.
type CallRecordDTO struct {
	ID          uint    `json:"id"`
	Protocol    string  `json:"protocol"`
	SourceID    uint32  `json:"source_id"`
	TalkgroupID uint32  `json:"talkgroup_id"`
	Timeslot    int     `json:"timeslot"`
	FrequencyHz uint64  `json:"frequency_hz"`
	Duration    float64 `json:"duration"`
	Encrypted   bool    `json:"encrypted"`
	StartTime   int64   `json:"start_time"`
	EndTime     int64   `json:"end_time"`
	PacketCount int     `json:"packet_count"`
}

// HandleStatus handles the /api/status endpoint.
func (a *API) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	version, commit, _ := GetVersionInfo()
	response := map[string]interface{}{
		"status":  "running",
		"service": "dsd-nexus",
		"version": version,
		"commit":  commit,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		a.logger.Error("Failed to encode status response", logger.Error(err))
	}
}

// HandleTrunk handles the /api/trunk endpoint, exposing the trunk state
// machine's current role and tuned frequencies.
func (a *API) HandleTrunk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if a.sm == nil {
		if err := json.NewEncoder(w).Encode(TrunkStatusDTO{}); err != nil {
			a.logger.Error("Failed to encode trunk response", logger.Error(err))
		}
		return
	}

	dto := TrunkStatusDTO{
		Role:        int(a.sm.Role),
		CurrentCC:   a.sm.CurrentCC(),
		VCFrequency: []uint64{a.sm.VCFrequency(0), a.sm.VCFrequency(1)},
	}
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		a.logger.Error("Failed to encode trunk response", logger.Error(err))
	}
}

// HandleIden handles the /api/iden endpoint, exposing the 16-slot
// identifier/band-plan table.
func (a *API) HandleIden(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	list := make([]IdenEntryDTO, 0)
	if a.sm != nil && a.sm.Iden != nil {
		for i := 0; i < 16; i++ {
			e := a.sm.Iden.Get(i)
			if e == nil {
				continue
			}
			list = append(list, IdenEntryDTO{
				Index:         i,
				Type:          int(e.Type),
				BaseFreqUnits: e.BaseFreqUnits,
				SpacingUnits:  e.SpacingUnits,
				TxOffset:      e.TxOffset,
				TDMADenom:     e.TDMADenom,
				Trust:         int(e.Trust),
			})
		}
	}
	if err := json.NewEncoder(w).Encode(list); err != nil {
		a.logger.Error("Failed to encode iden response", logger.Error(err))
	}
}

// HandlePatch handles the /api/patch endpoint, exposing the patch/regroup
// table.
func (a *API) HandlePatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	list := make([]PatchEntryDTO, 0)
	if a.sm != nil && a.sm.Patch != nil {
		for _, e := range a.sm.Patch.Snapshot() {
			list = append(list, PatchEntryDTO{SG: e.SG, Members: e.Members, Active: e.Active})
		}
	}
	if err := json.NewEncoder(w).Encode(list); err != nil {
		a.logger.Error("Failed to encode patch response", logger.Error(err))
	}
}

// HandleEvents handles the /api/events endpoint, exposing the event-ring
// snapshot for a given ?slot= query parameter (default 0).
func (a *API) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	slot := 0
	if s := r.URL.Query().Get("slot"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			slot = parsed
		}
	}

	list := make([]EventDTO, 0)
	if a.events != nil {
		for _, rec := range a.events.Snapshot(slot) {
			list = append(list, EventDTO{
				CallID:    rec.CallID.String(),
				Timestamp: rec.Timestamp.Unix(),
				Source:    rec.Source,
				Target:    rec.Target,
				Text:      rec.Text,
				GPS:       rec.GPS,
				Color:     rec.Color,
				Alias:     rec.Alias,
			})
		}
	}
	if err := json.NewEncoder(w).Encode(list); err != nil {
		a.logger.Error("Failed to encode events response", logger.Error(err))
	}
}

// HandleCallHistory handles the /api/calls endpoint, a paginated view of
// the persisted call-history database.
func (a *API) HandleCallHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if a.txRepo == nil {
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"calls":    []CallRecordDTO{},
			"total":    0,
			"page":     1,
			"per_page": 50,
		}); err != nil {
			a.logger.Error("Failed to encode call history response", logger.Error(err))
		}
		return
	}

	page := 1
	perPage := 50
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if perPageStr := r.URL.Query().Get("per_page"); perPageStr != "" {
		if pp, err := strconv.Atoi(perPageStr); err == nil && pp > 0 && pp <= 100 {
			perPage = pp
		}
	}

	calls, total, err := a.txRepo.GetRecentPaginated(page, perPage)
	if err != nil {
		a.logger.Error("Failed to get call history", logger.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	dtos := make([]CallRecordDTO, 0, len(calls))
	for _, c := range calls {
		dtos = append(dtos, CallRecordDTO{
			ID:          c.ID,
			Protocol:    c.Protocol,
			SourceID:    c.SourceID,
			TalkgroupID: c.TalkgroupID,
			Timeslot:    c.Timeslot,
			FrequencyHz: c.Frequency,
			Duration:    c.Duration,
			Encrypted:   c.Encrypted,
			StartTime:   c.StartTime.Unix(),
			EndTime:     c.EndTime.Unix(),
			PacketCount: c.PacketCount,
		})
	}

	w.WriteHeader(http.StatusOK)
	response := map[string]interface{}{
		"calls":    dtos,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		a.logger.Error("Failed to encode call history response", logger.Error(err))
	}
}
