package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

func controlAddr(cmd *cobra.Command) string {
	addr, _ := cmd.Root().PersistentFlags().GetString("control-addr")
	return addr
}

func postControl(addr, path string, body any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	resp, err := httpClient.Post(fmt.Sprintf("http://%s%s", addr, path), "application/json", reader)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody map[string]string
		json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("%s: %s", path, errBody["error"])
	}
	fmt.Println("ok")
	return nil
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the coordinator (future slices become NoSync)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return postControl(controlAddr(cmd), "/pause", nil)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the coordinator's previous schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		return postControl(controlAddr(cmd), "/resume", nil)
	},
}

var setSinkCmd = &cobra.Command{
	Use:   "set-sink",
	Short: "Set the remote (sink) cluster endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		protocol, _ := cmd.Flags().GetString("protocol")
		ip, _ := cmd.Flags().GetString("ip")
		port, _ := cmd.Flags().GetInt("port")
		return postControl(controlAddr(cmd), "/sink", endpointRequestArgs(protocol, ip, port))
	},
}

var setSourceCmd = &cobra.Command{
	Use:   "set-source",
	Short: "Set the local (source) cluster endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		protocol, _ := cmd.Flags().GetString("protocol")
		ip, _ := cmd.Flags().GetString("ip")
		port, _ := cmd.Flags().GetInt("port")
		return postControl(controlAddr(cmd), "/source", endpointRequestArgs(protocol, ip, port))
	},
}

func endpointRequestArgs(protocol, ip string, port int) map[string]any {
	return map[string]any{"protocol": protocol, "ip": ip, "port": port}
}

func init() {
	for _, c := range []*cobra.Command{setSinkCmd, setSourceCmd} {
		c.Flags().String("protocol", "http", "Endpoint protocol")
		c.Flags().String("ip", "", "Endpoint IP address")
		c.Flags().Int("port", 0, "Endpoint port")
	}
}

var setAllSyncCmd = &cobra.Command{
	Use:   "set-allsync",
	Short: "Switch scope to all-keyspace sync with the given n-vals",
	RunE: func(cmd *cobra.Command, args []string) error {
		localNVal, _ := cmd.Flags().GetInt("local-nval")
		remoteNVal, _ := cmd.Flags().GetInt("remote-nval")
		return postControl(controlAddr(cmd), "/allsync", map[string]any{
			"local_nval": localNVal, "remote_nval": remoteNVal,
		})
	},
}

func init() {
	setAllSyncCmd.Flags().Int("local-nval", 3, "Local cluster n-val")
	setAllSyncCmd.Flags().Int("remote-nval", 3, "Remote cluster n-val")
}

var setBucketSyncCmd = &cobra.Command{
	Use:   "set-bucketsync",
	Short: "Switch scope to bucket sync for a single bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket, _ := cmd.Flags().GetString("bucket")
		bucketType, _ := cmd.Flags().GetString("bucket-type")
		// bucketSyncRequest decodes these as []byte, which encoding/json
		// expects base64-encoded.
		return postControl(controlAddr(cmd), "/bucketsync", map[string]any{
			"buckets": []map[string]string{
				{
					"bucket":      base64.StdEncoding.EncodeToString([]byte(bucket)),
					"bucket_type": base64.StdEncoding.EncodeToString([]byte(bucketType)),
				},
			},
		})
	},
}

func init() {
	setBucketSyncCmd.Flags().String("bucket", "", "Bucket name")
	setBucketSyncCmd.Flags().String("bucket-type", "default", "Bucket type")
}

var processWorkItemCmd = &cobra.Command{
	Use:   "process-workitem",
	Short: "Trigger one exchange outside the normal schedule (process_workitem)",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		reqID, _ := cmd.Flags().GetString("reqid")
		wait, _ := cmd.Flags().GetBool("wait")

		payload, err := json.Marshal(map[string]string{"kind": kind, "reqId": reqID})
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		resp, err := httpClient.Post(fmt.Sprintf("http://%s/workitem", controlAddr(cmd)), "application/json", bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("call /workitem: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusAccepted {
			var errBody map[string]string
			json.NewDecoder(resp.Body).Decode(&errBody)
			return fmt.Errorf("process-workitem: %s", errBody["error"])
		}
		fmt.Println("accepted")

		if !wait || reqID == "" {
			return nil
		}
		return awaitWorkItem(cmd, reqID)
	},
}

func awaitWorkItem(cmd *cobra.Command, reqID string) error {
	resp, err := httpClient.Get(fmt.Sprintf("http://%s/workitem?reqId=%s", controlAddr(cmd), reqID))
	if err != nil {
		return fmt.Errorf("call /workitem: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("process-workitem: %s", string(data))
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	encoded, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(encoded))
	return nil
}

func init() {
	processWorkItemCmd.Flags().String("kind", "all_sync", "Work item kind: no_sync, all_sync, day_sync, hour_sync")
	processWorkItemCmd.Flags().String("reqid", "", "Correlation id; empty means no_reply (fire-and-forget)")
	processWorkItemCmd.Flags().Bool("wait", false, "Block for the result after submitting (requires --reqid)")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the coordinator's current schedule and scope",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := httpClient.Get(fmt.Sprintf("http://%s/status", controlAddr(cmd)))
		if err != nil {
			return fmt.Errorf("call /status: %w", err)
		}
		defer resp.Body.Close()

		var snapshot map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
			return fmt.Errorf("decode status: %w", err)
		}
		out, _ := json.MarshalIndent(snapshot, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}
