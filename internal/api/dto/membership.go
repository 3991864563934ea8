package dto

// ListAgentsInput filters the agents linked to an agency.
type ListAgentsInput struct {
	AgencyParam
	Status string `query:"status" enum:"pending,active,inactive" doc:"Only links in this status"`
	Query  string `query:"q" maxLength:"200" doc:"Case-insensitive match on agent name or email"`
}

// RemoveAgentInput identifies the agent to unlink.
type RemoveAgentInput struct {
	AgencyParam
	AgentID string `path:"agentID" doc:"Agent profile identifier"`
}
