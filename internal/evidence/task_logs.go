package evidence

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwl "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/moolen/flare/internal/awsapi"
	"github.com/moolen/flare/internal/diagnosis"
	"github.com/moolen/flare/internal/logging"
	"github.com/moolen/flare/internal/timewindow"
)

const (
	// maxLogStreams caps the stream listing to the most recently active
	// streams of a group. Draining every stream a busy group ever had
	// buys nothing for a bounded time window.
	maxLogStreams = 50

	// maxEventsPerStream caps the events fetched from a single stream.
	maxEventsPerStream = 1000

	// patternPrefixLen is the number of leading characters used to
	// bucket similar error messages together.
	patternPrefixLen = 50

	// maxErrorPatterns is the number of buckets reported in the summary.
	maxErrorPatterns = 5
)

// TaskLogsResult reports the CloudWatch log entries of an application's
// task containers within a time window, with severity counts and the
// most frequent error shapes.
type TaskLogsResult struct {
	diagnosis.Envelope

	LogGroups      []LogGroupLogs `json:"log_groups"`
	LogEntries     []LogEntry     `json:"log_entries"`
	ErrorCount     int            `json:"error_count"`
	WarningCount   int            `json:"warning_count"`
	InfoCount      int            `json:"info_count"`
	PatternSummary []ErrorPattern `json:"pattern_summary"`
	Errors         []string       `json:"errors,omitempty"`
}

// LogGroupLogs is the per-group slice of the result.
type LogGroupLogs struct {
	Name       string     `json:"name"`
	LogStreams []string   `json:"log_streams"`
	Entries    []LogEntry `json:"entries"`
}

// LogEntry is one log line with its derived severity.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
	Stream    string `json:"stream"`
}

// ErrorPattern is one bucket of error messages sharing a leading
// prefix, with a representative sample.
type ErrorPattern struct {
	Pattern string `json:"pattern"`
	Count   int    `json:"count"`
	Sample  string `json:"sample"`
}

// TaskLogsQuery narrows the log collection. TaskID restricts streams to
// those of one task; FilterPattern is a CloudWatch Logs filter
// expression applied server side.
type TaskLogsQuery struct {
	AppName       string
	ClusterName   string
	TaskID        string
	FilterPattern string
	Window        timewindow.Window
}

// TaskLogsCollector reads container logs from CloudWatch Logs.
type TaskLogsCollector struct {
	logs   awsapi.LogsAPI
	logger *logging.Logger
}

// NewTaskLogs returns a collector backed by the given client.
func NewTaskLogs(logsAPI awsapi.LogsAPI) *TaskLogsCollector {
	return &TaskLogsCollector{
		logs:   logsAPI,
		logger: logging.GetLogger("evidence"),
	}
}

// Collect gathers log entries from every group matching the
// "/ecs/<cluster>/<app>" naming convention. Stream and event failures
// are recorded per source and degrade the result to warning; entries
// from healthy streams are always returned.
func (c *TaskLogsCollector) Collect(ctx context.Context, q TaskLogsQuery) *TaskLogsResult {
	cluster := q.ClusterName
	if cluster == "" {
		cluster = q.AppName + "-cluster"
	}
	prefix := fmt.Sprintf("/ecs/%s/%s", cluster, q.AppName)

	res := &TaskLogsResult{
		Envelope:       diagnosis.Success(),
		LogGroups:      []LogGroupLogs{},
		LogEntries:     []LogEntry{},
		PatternSummary: []ErrorPattern{},
	}

	groups, err := c.logs.DescribeLogGroups(ctx, &cwl.DescribeLogGroupsInput{
		LogGroupNamePrefix: aws.String(prefix),
	})
	if err != nil {
		res.Envelope = diagnosis.Errorf("Error describing log groups with prefix '%s': %v", prefix, err)
		return res
	}
	if len(groups.LogGroups) == 0 {
		res.Envelope = diagnosis.NotFound(fmt.Sprintf("No log groups found matching pattern '%s'", prefix))
		return res
	}

	for _, group := range groups.LogGroups {
		c.collectGroup(ctx, aws.ToString(group.LogGroupName), q, res)
	}

	res.PatternSummary = summarizeErrorPatterns(res.LogEntries)
	if len(res.Errors) > 0 {
		res.Status = diagnosis.StatusWarning
	}
	return res
}

func (c *TaskLogsCollector) collectGroup(ctx context.Context, groupName string, q TaskLogsQuery, res *TaskLogsResult) {
	info := LogGroupLogs{
		Name:       groupName,
		LogStreams: []string{},
		Entries:    []LogEntry{},
	}
	defer func() { res.LogGroups = append(res.LogGroups, info) }()

	// Task narrowing stays client side: stream names follow
	// "<prefix>/<container>/<task id>", and the listing API refuses a
	// name prefix combined with last-event-time ordering.
	streams, err := c.logs.DescribeLogStreams(ctx, &cwl.DescribeLogStreamsInput{
		LogGroupName: aws.String(groupName),
		OrderBy:      cwltypes.OrderByLastEventTime,
		Descending:   aws.Bool(true),
		Limit:        aws.Int32(maxLogStreams),
	})
	if err != nil {
		c.logger.Warn("failed to list streams of group %s: %v", groupName, err)
		res.Errors = append(res.Errors, fmt.Sprintf("Error retrieving log streams for group %s: %v", groupName, err))
		return
	}

	for _, stream := range streams.LogStreams {
		streamName := aws.ToString(stream.LogStreamName)
		if q.TaskID != "" && !strings.Contains(streamName, q.TaskID) {
			continue
		}
		events, err := c.fetchEvents(ctx, groupName, streamName, q)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Error retrieving log events for stream %s: %v", streamName, err))
		}
		for _, event := range events {
			entry := LogEntry{
				Timestamp: diagnosis.FormatTime(time.UnixMilli(event.timestamp)),
				Message:   event.message,
				Severity:  classifySeverity(event.message),
				Stream:    streamName,
			}
			switch entry.Severity {
			case "ERROR":
				res.ErrorCount++
			case "WARN":
				res.WarningCount++
			default:
				res.InfoCount++
			}
			info.Entries = append(info.Entries, entry)
			res.LogEntries = append(res.LogEntries, entry)
		}
		info.LogStreams = append(info.LogStreams, streamName)
	}
}

type rawLogEvent struct {
	timestamp int64
	message   string
}

// fetchEvents reads one stream in chronological order. A filter pattern
// switches to the server-side filtered read, which the plain event API
// does not support.
func (c *TaskLogsCollector) fetchEvents(ctx context.Context, groupName, streamName string, q TaskLogsQuery) ([]rawLogEvent, error) {
	if q.FilterPattern != "" {
		out, err := c.logs.FilterLogEvents(ctx, &cwl.FilterLogEventsInput{
			LogGroupName:   aws.String(groupName),
			LogStreamNames: []string{streamName},
			StartTime:      aws.Int64(q.Window.StartMillis()),
			EndTime:        aws.Int64(q.Window.EndMillis()),
			FilterPattern:  aws.String(q.FilterPattern),
			Limit:          aws.Int32(maxEventsPerStream),
		})
		if err != nil {
			return nil, err
		}
		events := make([]rawLogEvent, 0, len(out.Events))
		for _, event := range out.Events {
			events = append(events, rawLogEvent{
				timestamp: aws.ToInt64(event.Timestamp),
				message:   aws.ToString(event.Message),
			})
		}
		return events, nil
	}

	out, err := c.logs.GetLogEvents(ctx, &cwl.GetLogEventsInput{
		LogGroupName:  aws.String(groupName),
		LogStreamName: aws.String(streamName),
		StartTime:     aws.Int64(q.Window.StartMillis()),
		EndTime:       aws.Int64(q.Window.EndMillis()),
		Limit:         aws.Int32(maxEventsPerStream),
		StartFromHead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	events := make([]rawLogEvent, 0, len(out.Events))
	for _, event := range out.Events {
		events = append(events, rawLogEvent{
			timestamp: aws.ToInt64(event.Timestamp),
			message:   aws.ToString(event.Message),
		})
	}
	return events, nil
}

// classifySeverity derives a coarse severity from the message text.
func classifySeverity(message string) string {
	upper := strings.ToUpper(message)
	switch {
	case strings.Contains(upper, "ERROR"), strings.Contains(upper, "EXCEPTION"), strings.Contains(upper, "FAIL"):
		return "ERROR"
	case strings.Contains(upper, "WARN"):
		return "WARN"
	default:
		return "INFO"
	}
}

// summarizeErrorPatterns buckets error entries by their leading
// characters and returns the most frequent buckets, each with the first
// message seen as a sample. Ties keep first-seen order.
func summarizeErrorPatterns(entries []LogEntry) []ErrorPattern {
	counts := map[string]int{}
	samples := map[string]string{}
	var order []string
	for _, entry := range entries {
		if entry.Severity != "ERROR" {
			continue
		}
		key := patternKey(entry.Message)
		if counts[key] == 0 {
			order = append(order, key)
			samples[key] = entry.Message
		}
		counts[key]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > maxErrorPatterns {
		order = order[:maxErrorPatterns]
	}

	patterns := make([]ErrorPattern, 0, len(order))
	for _, key := range order {
		patterns = append(patterns, ErrorPattern{
			Pattern: key,
			Count:   counts[key],
			Sample:  samples[key],
		})
	}
	return patterns
}

func patternKey(message string) string {
	runes := []rune(message)
	if len(runes) > patternPrefixLen {
		return string(runes[:patternPrefixLen])
	}
	return message
}
