package tool

// Definition is the model-facing description of one callable tool: the
// name, a one-line description for the system prompt, and a JSON-schema
// parameter spec for function-calling. Static rather than derived from the
// Tool interface because the parameter shapes are part of the spec's tool
// contract, not an implementation detail any one handler owns.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

func strParam(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc}
}

func intParam(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": desc}
}

func schema(required []string, props map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// StandardDefinitions enumerates the thirteen tools of spec §4.2 (seven
// named tools plus six opaque orchestration tools), in the shape the model needs to
// propose calls and the system prompt needs to list them.
func StandardDefinitions() []Definition {
	return []Definition{
		{
			Name:        "shell_exec",
			Description: "Run a shell command inside the sandboxed workspace, subject to the allow-list and deny patterns.",
			Parameters: schema([]string{"command"}, map[string]interface{}{
				"command": strParam("the shell command line to execute"),
			}),
		},
		{
			Name:        "file_read",
			Description: "Read the full contents of a file. Reads are unrestricted — any path on the filesystem may be read.",
			Parameters: schema([]string{"path"}, map[string]interface{}{
				"path": strParam("path to the file to read"),
			}),
		},
		{
			Name:        "file_write",
			Description: "Write content to a file. Writes are confined to the workspace root.",
			Parameters: schema([]string{"path", "content"}, map[string]interface{}{
				"path":    strParam("workspace-relative path to write"),
				"content": strParam("the full content to write"),
			}),
		},
		{
			Name:        "web_fetch",
			Description: "Fetch a URL's textual content (markdown, html, or json). Blocks requests to loopback/private/metadata addresses.",
			Parameters: schema([]string{"url"}, map[string]interface{}{
				"url":        strParam("the URL to fetch"),
				"format":     strParam("one of markdown (default), raw, json"),
				"max_length": intParam("truncate the result to this many characters"),
			}),
		},
		{
			Name:        "web_search",
			Description: "Search the web via DuckDuckGo (default) or Brave (if configured) and return a list of {title,url,snippet}.",
			Parameters: schema([]string{"query"}, map[string]interface{}{
				"query":    strParam("the search query"),
				"count":    intParam("number of results to return, default 5"),
				"provider": strParam("duckduckgo (default) or brave"),
			}),
		},
		{
			Name:        "sleep",
			Description: "Suspend the agent until a wake condition fires. Modes: timer (seconds), event (agent_id), manual (user resume).",
			Parameters: schema([]string{"mode"}, map[string]interface{}{
				"mode":     strParam("one of timer, event, manual"),
				"seconds":  intParam("required for mode=timer"),
				"agent_id": strParam("required for mode=event"),
			}),
		},
		{
			Name:        "flag_discovery",
			Description: "Record a noteworthy discovery to the workspace's append-only discoveries log.",
			Parameters: schema([]string{"title", "description"}, map[string]interface{}{
				"title":       strParam("short discovery title"),
				"description": strParam("longer discovery description"),
			}),
		},
		{
			Name:        "subagent_spawn",
			Description: "Spawn a tracked sub-agent worker handle, returning its agent_id.",
			Parameters: schema(nil, map[string]interface{}{
				"label": strParam("a human-readable label for the sub-agent"),
			}),
		},
		{
			Name:        "subagent_status",
			Description: "Query the lifecycle status of a previously spawned sub-agent.",
			Parameters: schema([]string{"agent_id"}, map[string]interface{}{
				"agent_id": strParam("the sub-agent's id"),
			}),
		},
		{
			Name:        "subagent_kill",
			Description: "Terminate a previously spawned sub-agent.",
			Parameters: schema([]string{"agent_id"}, map[string]interface{}{
				"agent_id": strParam("the sub-agent's id"),
			}),
		},
		{
			Name:        "subagent_list",
			Description: "List all tracked sub-agents and their statuses.",
			Parameters:  schema(nil, map[string]interface{}{}),
		},
		{
			Name:        "subagent_send",
			Description: "Send an opaque message to a running sub-agent.",
			Parameters: schema([]string{"agent_id", "message"}, map[string]interface{}{
				"agent_id": strParam("the sub-agent's id"),
				"message":  strParam("the message payload"),
			}),
		},
		{
			Name:        "subagent_await",
			Description: "Report a sub-agent's status without blocking.",
			Parameters: schema([]string{"agent_id"}, map[string]interface{}{
				"agent_id": strParam("the sub-agent's id"),
			}),
		},
	}
}
