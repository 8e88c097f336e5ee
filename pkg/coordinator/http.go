package coordinator

import (
	"encoding/json"
	"net/http"

	"github.com/cuemby/aaesync/pkg/types"
)

// Handler builds the coordinator's control HTTP surface: POST
// /pause, /resume, /sink, /source, /allsync, /bucketsync, GET
// /status, and POST/GET /workitem. It mirrors the control API a real
// deployment would expose over its RPC transport.
func (c *Coordinator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/pause", c.handlePause)
	mux.HandleFunc("/resume", c.handleResume)
	mux.HandleFunc("/sink", c.handleSetSink)
	mux.HandleFunc("/source", c.handleSetSource)
	mux.HandleFunc("/allsync", c.handleSetAllSync)
	mux.HandleFunc("/bucketsync", c.handleSetBucketSync)
	mux.HandleFunc("/status", c.handleStatus)
	mux.HandleFunc("/workitem", c.handleWorkItem)
	return mux
}

func (c *Coordinator) handlePause(w http.ResponseWriter, r *http.Request) {
	writeControlResult(w, c.Pause(r.Context()))
}

func (c *Coordinator) handleResume(w http.ResponseWriter, r *http.Request) {
	writeControlResult(w, c.Resume(r.Context()))
}

type endpointRequest struct {
	Protocol string `json:"protocol"`
	IP       string `json:"ip"`
	Port     int    `json:"port"`
}

func (c *Coordinator) handleSetSink(w http.ResponseWriter, r *http.Request) {
	var req endpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeControlResult(w, c.SetSink(r.Context(), types.Endpoint{Protocol: req.Protocol, IP: req.IP, Port: req.Port}))
}

func (c *Coordinator) handleSetSource(w http.ResponseWriter, r *http.Request) {
	var req endpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeControlResult(w, c.SetSource(r.Context(), types.Endpoint{Protocol: req.Protocol, IP: req.IP, Port: req.Port}))
}

type allSyncRequest struct {
	LocalNVal  int `json:"local_nval"`
	RemoteNVal int `json:"remote_nval"`
}

func (c *Coordinator) handleSetAllSync(w http.ResponseWriter, r *http.Request) {
	var req allSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeControlResult(w, c.SetAllSync(r.Context(), req.LocalNVal, req.RemoteNVal))
}

type bucketSyncRequest struct {
	Buckets []struct {
		Bucket     []byte `json:"bucket"`
		BucketType []byte `json:"bucket_type"`
	} `json:"buckets"`
}

func (c *Coordinator) handleSetBucketSync(w http.ResponseWriter, r *http.Request) {
	var req bucketSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	buckets := make([]types.BucketID, len(req.Buckets))
	for i, b := range req.Buckets {
		buckets[i] = types.BucketID{Bucket: b.Bucket, BucketType: b.BucketType}
	}
	writeControlResult(w, c.SetBucketSync(r.Context(), buckets))
}

// handleWorkItem implements process_workitem: POST starts the exchange
// and returns as soon as it's accepted into the mailbox (per spec.md
// this call is async, unlike the rest of the control surface); GET
// blocks for the result of a previously-submitted reqId.
func (c *Coordinator) handleWorkItem(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Kind  string `json:"kind"`
			ReqID string `json:"reqId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result := c.ProcessWorkItem(r.Context(), types.WorkItemKind(req.Kind), req.ReqID)
		if !result.OK() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": result.Err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"reqId": req.ReqID})

	case http.MethodGet:
		reqID := r.URL.Query().Get("reqId")
		if reqID == "" {
			http.Error(w, "reqId is required", http.StatusBadRequest)
			return
		}
		result, err := c.AwaitResult(r.Context(), reqID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"reqId": reqID, "result": result})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (c *Coordinator) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot, err := c.Status(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

func writeControlResult(w http.ResponseWriter, result ControlResult) {
	w.Header().Set("Content-Type", "application/json")
	if !result.OK() {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": result.Err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
