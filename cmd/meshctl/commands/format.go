package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/atomozero/meshcore-go/internal/controlplane"
)

const (
	formatJSON  = "json"
	formatTable = "table"
	valueNA     = "N/A"
)

// errUnsupportedFormat is returned when the requested output format is not supported.
var errUnsupportedFormat = errors.New("unsupported output format")

func formatStatus(s *controlplane.GetStatusResponse, format string) (string, error) {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal status to JSON: %w", err)
		}
		return string(data), nil
	case formatTable:
		var buf strings.Builder
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Public Key:\t%s\n", s.PublicKeyHex)
		fmt.Fprintf(w, "Node Hash:\t%02x\n", s.NodeHash)
		fmt.Fprintf(w, "Name:\t%s\n", s.Name)
		fmt.Fprintf(w, "Repeater:\t%v\n", s.Repeater)
		fmt.Fprintf(w, "Uptime:\t%s\n", s.Uptime)
		fmt.Fprintf(w, "Battery:\t%d mV\n", s.BatteryMV)
		fmt.Fprintf(w, "Noise Floor:\t%d dBm\n", s.NoiseFloor)
		fmt.Fprintf(w, "TX Queue Length:\t%d\n", s.TXQueueLen)
		if err := w.Flush(); err != nil {
			return "", fmt.Errorf("flush tabwriter: %w", err)
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatNodes(nodes []controlplane.NodeInfo, format string) (string, error) {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(nodes, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal nodes to JSON: %w", err)
		}
		return string(data), nil
	case formatTable:
		var buf strings.Builder
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "HASH\tPUBLIC-KEY\tSNR\tLAST-SEEN")
		for _, n := range nodes {
			fmt.Fprintf(w, "%02x\t%s\t%.1f\t%s\n",
				n.NodeHash, n.PublicKeyHex, n.SNR, formatUnixTime(n.LastSeenUnix))
		}
		if err := w.Flush(); err != nil {
			return "", fmt.Errorf("flush tabwriter: %w", err)
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatContacts(contacts []controlplane.ContactInfo, format string) (string, error) {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(contacts, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal contacts to JSON: %w", err)
		}
		return string(data), nil
	case formatTable:
		var buf strings.Builder
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "HASH\tPUBLIC-KEY\tNAME")
		for _, c := range contacts {
			fmt.Fprintf(w, "%02x\t%s\t%s\n", c.NodeHash, c.PublicKeyHex, c.Name)
		}
		if err := w.Flush(); err != nil {
			return "", fmt.Errorf("flush tabwriter: %w", err)
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatNeighbours(neighbours []controlplane.NeighbourInfo, format string) (string, error) {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(neighbours, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal neighbours to JSON: %w", err)
		}
		return string(data), nil
	case formatTable:
		var buf strings.Builder
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "HASH\tPUBLIC-KEY\tSNR\tLAST-SEEN")
		for _, n := range neighbours {
			fmt.Fprintf(w, "%02x\t%s\t%.1f\t%s\n",
				n.NodeHash, n.PublicKeyHex, n.SNR, formatUnixTime(n.LastSeenUnix))
		}
		if err := w.Flush(); err != nil {
			return "", fmt.Errorf("flush tabwriter: %w", err)
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatEvent(event *controlplane.Event, format string) (string, error) {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(event, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal event to JSON: %w", err)
		}
		return string(data), nil
	case formatTable:
		return fmt.Sprintf("[%s] %s  node=%02x  %s",
			time.Now().Format(time.RFC3339), shortEventType(event.Type), event.NodeHash, event.Detail), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func shortEventType(t controlplane.EventType) string {
	switch t {
	case controlplane.EventNodeJoined:
		return "NodeJoined"
	case controlplane.EventStateChange:
		return "StateChange"
	case controlplane.EventRadioError:
		return "RadioError"
	default:
		return "Unspecified"
	}
}

func formatUnixTime(unix int64) string {
	if unix == 0 {
		return valueNA
	}
	return time.Unix(unix, 0).Format(time.RFC3339)
}
