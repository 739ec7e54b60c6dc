// Copyright 2025 Octank Insurance
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"octank/virtual-agent/llm"
	"octank/virtual-agent/rag"
	"octank/virtual-agent/shared/logger"
)

// Tool names form a closed set; the registry rejects anything else.
const (
	ToolGetEligibility      = "get_eligibility"
	ToolGetClaimStatus      = "get_claim_status"
	ToolCreateFNOL          = "create_fnol"
	ToolSearchKnowledgeBase = "search_knowledge_base"
	ToolEscalateToHuman     = "escalate_to_human"
	ToolScheduleCallback    = "schedule_callback"
)

// Access classes distinguish pure lookups from state-mutating tools in
// traces and audit detail.
const (
	AccessRead  = "read"
	AccessWrite = "write"
)

// ToolHandler executes one tool invocation. Returned maps are the wire
// payload fed back to the model; an error is converted by the executor
// into an error-valued result, never propagated.
type ToolHandler func(ctx context.Context, input map[string]any) (map[string]any, error)

type registeredTool struct {
	definition llm.ToolDefinition
	handler    ToolHandler
	access     string
}

// ToolRegistry maps the closed tool-name set to handlers and schemas.
// Execution never lets a fault escape: unknown names, handler errors,
// and panics all become error-valued results.
type ToolRegistry struct {
	tools map[string]registeredTool
	log   *logger.Logger
}

// NewToolRegistry wires the standard tool set against the given
// collaborators.
func NewToolRegistry(directory *MemberDirectory, claims *ClaimsStore, retriever *rag.Retriever, topK int) *ToolRegistry {
	r := &ToolRegistry{
		tools: make(map[string]registeredTool),
		log:   logger.New("tools"),
	}

	r.register(llm.ToolDefinition{
		Name:        ToolGetEligibility,
		Description: "Retrieve eligibility and coverage details for the authenticated member. Returns coverage type, deductible, limits, and benefits.",
		InputSchema: objectSchema(map[string]any{
			"member_id": stringProp("The member ID to look up"),
		}, "member_id"),
	}, AccessRead, func(ctx context.Context, input map[string]any) (map[string]any, error) {
		return getEligibility(directory, argString(input, "member_id"))
	})

	r.register(llm.ToolDefinition{
		Name:        ToolGetClaimStatus,
		Description: "Retrieve claim status, timeline, and next steps. If no claim_id provided, returns all recent claims for the member.",
		InputSchema: objectSchema(map[string]any{
			"member_id": stringProp("The member ID"),
			"claim_id":  stringProp("Optional specific claim ID. If omitted, returns all claims for the member."),
		}, "member_id"),
	}, AccessRead, func(ctx context.Context, input map[string]any) (map[string]any, error) {
		return getClaimStatus(directory, claims, argString(input, "member_id"), argString(input, "claim_id"))
	})

	r.register(llm.ToolDefinition{
		Name:        ToolCreateFNOL,
		Description: "File a First Notice of Loss (FNOL) claim. IMPORTANT: Only call this AFTER the member has explicitly confirmed they want to file. Present a summary of collected information and ask for confirmation first.",
		InputSchema: objectSchema(map[string]any{
			"member_id":            stringProp("The member ID"),
			"date_of_loss":         stringProp("Date of the incident (YYYY-MM-DD)"),
			"description":          stringProp("Description of what happened"),
			"location":             stringProp("Location of the incident"),
			"injuries":             map[string]any{"type": "boolean", "description": "Whether anyone was injured"},
			"injury_description":   stringProp("Description of injuries if any"),
			"police_report_number": stringProp("Police report number if filed"),
		}, "member_id", "date_of_loss", "description"),
	}, AccessWrite, func(ctx context.Context, input map[string]any) (map[string]any, error) {
		return createFNOL(directory, claims, input)
	})

	r.register(llm.ToolDefinition{
		Name:        ToolSearchKnowledgeBase,
		Description: "Search Octank Insurance policy documents and knowledge base. Use this to find information about coverage details, procedures, deductibles, filing requirements, and policy terms.",
		InputSchema: objectSchema(map[string]any{
			"query": stringProp("Search query describing what information is needed"),
		}, "query"),
	}, AccessRead, func(ctx context.Context, input map[string]any) (map[string]any, error) {
		return searchKnowledgeBase(retriever, argString(input, "query"), topK)
	})

	r.register(llm.ToolDefinition{
		Name:        ToolEscalateToHuman,
		Description: "Escalate the conversation to a human claims specialist. Use when: the member explicitly asks for a human, the issue involves injuries/fatality, sentiment is very negative, or you cannot resolve the issue.",
		InputSchema: objectSchema(map[string]any{
			"reason":               stringProp("Reason for escalation"),
			"conversation_summary": stringProp("Brief summary of the conversation so far for the human agent"),
		}, "reason", "conversation_summary"),
	}, AccessWrite, func(ctx context.Context, input map[string]any) (map[string]any, error) {
		return escalateToHuman(argString(input, "reason"), argString(input, "conversation_summary"))
	})

	r.register(llm.ToolDefinition{
		Name:        ToolScheduleCallback,
		Description: "Schedule a callback from a human agent. Use when the member wants to be called back rather than wait on hold, or when they need to speak with someone but not urgently.",
		InputSchema: objectSchema(map[string]any{
			"member_id":      stringProp("The member ID"),
			"preferred_time": stringProp("Member's preferred callback time (e.g. 'tomorrow morning', '2pm today')"),
			"phone_number":   stringProp("Phone number to call back on. If not provided, uses number on file."),
			"reason":         stringProp("Brief reason for the callback request"),
		}, "member_id"),
	}, AccessWrite, func(ctx context.Context, input map[string]any) (map[string]any, error) {
		return scheduleCallback(directory, input)
	})

	return r
}

func (r *ToolRegistry) register(def llm.ToolDefinition, access string, handler ToolHandler) {
	r.tools[def.Name] = registeredTool{definition: def, handler: handler, access: access}
}

// Definitions returns the schemas for the named tools, in the order given.
// Unknown names are skipped.
func (r *ToolRegistry) Definitions(names ...string) []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(names))
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			defs = append(defs, t.definition)
		}
	}
	return defs
}

// Access returns the access class for a tool name, defaulting to write
// for unknown names.
func (r *ToolRegistry) Access(name string) string {
	if t, ok := r.tools[name]; ok {
		return t.access
	}
	return AccessWrite
}

// Execute runs the named tool. The result always carries either the
// tool's payload or an "error" key; faults never escape to the caller.
func (r *ToolRegistry) Execute(ctx context.Context, name string, input map[string]any) (result map[string]any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("", "", "tool panicked", map[string]any{"tool": name, "panic": fmt.Sprint(rec)})
			result = map[string]any{"error": fmt.Sprintf("tool %s failed: %v", name, rec)}
		}
	}()

	t, ok := r.tools[name]
	if !ok {
		return map[string]any{"error": fmt.Sprintf("%v: %s", ErrUnknownTool, name)}
	}
	if input == nil {
		input = map[string]any{}
	}

	out, err := t.handler(ctx, input)
	if err != nil {
		r.log.Error("", "", "tool execution error", map[string]any{"tool": name, "error": err.Error()})
		return map[string]any{"error": err.Error()}
	}
	return out
}

// IsErrorResult reports whether a tool result carries an error field.
func IsErrorResult(result map[string]any) bool {
	_, ok := result["error"]
	return ok
}

// =============================================================================
// Tool Implementations
// =============================================================================

func getEligibility(directory *MemberDirectory, memberID string) (map[string]any, error) {
	member, err := directory.Get(memberID)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"member_id":           member.MemberID,
		"name":                member.Name,
		"policy_number":       member.PolicyNumber,
		"policy_type":         member.PolicyType,
		"coverage_type":       member.Coverage.Type,
		"liability_limit":     member.Coverage.LiabilityLimit,
		"deductible":          member.Coverage.Deductible,
		"out_of_pocket_max":   member.Coverage.OutOfPocketMax,
		"uninsured_motorist":  member.Coverage.UninsuredMotorist,
		"rental_coverage":     member.Coverage.RentalCoverage,
		"roadside_assistance": member.Coverage.RoadsideAssistance,
		"effective_date":      member.EffectiveDate,
		"expiration_date":     member.ExpirationDate,
		"vehicles":            member.Vehicles,
	}, nil
}

func getClaimStatus(directory *MemberDirectory, claims *ClaimsStore, memberID, claimID string) (map[string]any, error) {
	if _, err := directory.Get(memberID); err != nil {
		return nil, err
	}

	if claimID != "" {
		claim, ok := claims.Get(claimID)
		if !ok {
			return nil, fmt.Errorf("claim %s not found", claimID)
		}
		if claim.MemberID != memberID {
			return nil, fmt.Errorf("claim %s does not belong to member %s", claimID, memberID)
		}
		return formatClaim(claim), nil
	}

	memberClaims := claims.ForMember(memberID)
	if len(memberClaims) == 0 {
		return map[string]any{
			"member_id": memberID,
			"claims":    []any{},
			"message":   "No claims found for this member.",
		}, nil
	}

	formatted := make([]map[string]any, 0, len(memberClaims))
	for _, c := range memberClaims {
		formatted = append(formatted, formatClaim(c))
	}
	return map[string]any{"member_id": memberID, "claims": formatted}, nil
}

func formatClaim(c Claim) map[string]any {
	return map[string]any{
		"claim_id":         c.ClaimID,
		"status":           c.Status,
		"type":             c.Type,
		"filed_date":       c.FiledDate,
		"date_of_loss":     c.DateOfLoss,
		"description":      c.Description,
		"estimated_damage": c.EstimatedDamage,
		"approved_amount":  c.ApprovedAmount,
		"adjuster":         c.Adjuster,
		"timeline":         c.Timeline,
		"next_steps":       c.NextSteps,
	}
}

func createFNOL(directory *MemberDirectory, claims *ClaimsStore, input map[string]any) (map[string]any, error) {
	memberID := argString(input, "member_id")
	member, err := directory.Get(memberID)
	if err != nil {
		return nil, err
	}

	dateOfLoss := argString(input, "date_of_loss")
	description := argString(input, "description")
	if dateOfLoss == "" || description == "" {
		return nil, fmt.Errorf("date_of_loss and description are required")
	}

	now := time.Now().UTC()
	claimID := fmt.Sprintf("CLM-%d-%s", now.Year(), strings.ToUpper(uuid.NewString()[:3]))
	confirmation := "CONF-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])

	injuries := argBool(input, "injuries")
	claim := Claim{
		ClaimID:            claimID,
		ConfirmationNumber: confirmation,
		MemberID:           memberID,
		PolicyNumber:       member.PolicyNumber,
		Status:             "filed",
		Type:               "collision",
		FiledDate:          now.Format("2006-01-02"),
		DateOfLoss:         dateOfLoss,
		Description:        description,
		Location:           argString(input, "location"),
		Injuries:           injuries,
		PoliceReportNumber: argString(input, "police_report_number"),
		NextSteps: []string{
			"A claims adjuster will be assigned within 24 hours and will contact you directly",
			"Please have photos of the damage ready for the adjuster",
			fmt.Sprintf("Your claim number is %s - use this for any follow-up inquiries", claimID),
			"You can check your claim status anytime through our virtual agent or member portal",
		},
	}
	if injuries {
		claim.InjuryDescription = argString(input, "injury_description")
	}
	claims.Add(claim)

	return map[string]any{
		"claim_id":            claimID,
		"confirmation_number": confirmation,
		"status":              "filed",
		"filed_date":          claim.FiledDate,
		"next_steps":          claim.NextSteps,
		"message":             fmt.Sprintf("Your FNOL has been successfully filed. Claim ID: %s, Confirmation: %s", claimID, confirmation),
	}, nil
}

func searchKnowledgeBase(retriever *rag.Retriever, query string, topK int) (map[string]any, error) {
	results := retriever.Search(query, topK)
	if len(results) == 0 {
		return map[string]any{
			"results": []any{},
			"message": "No relevant policy documents found for this query.",
		}, nil
	}

	formatted := make([]map[string]any, 0, len(results))
	for _, r := range results {
		formatted = append(formatted, map[string]any{
			"chunk_text":      r.ChunkText,
			"source_doc":      r.SourceDoc,
			"heading":         r.Heading,
			"relevance_score": r.RelevanceScore,
		})
	}
	return map[string]any{"results": formatted, "total_results": len(formatted)}, nil
}

func escalateToHuman(reason, conversationSummary string) (map[string]any, error) {
	escalationID := "ESC-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return map[string]any{
		"escalation_id":        escalationID,
		"status":               "escalated",
		"reason":               reason,
		"conversation_summary": conversationSummary,
		"estimated_wait_time":  "3 minutes",
		"queue_position":       2,
		"message": "You are being connected to a claims specialist. Your estimated wait time is " +
			"approximately 3 minutes. A summary of our conversation has been shared with the " +
			"specialist so you won't need to repeat yourself.",
	}, nil
}

func scheduleCallback(directory *MemberDirectory, input map[string]any) (map[string]any, error) {
	memberID := argString(input, "member_id")
	member, err := directory.Get(memberID)
	if err != nil {
		return nil, err
	}

	preferredTime := argString(input, "preferred_time")
	phone := argString(input, "phone_number")
	if phone == "" {
		phone = member.Phone
	}
	displayTime := preferredTime
	if displayTime == "" {
		displayTime = "the next available time"
	}

	callbackID := "CB-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return map[string]any{
		"callback_id":    callbackID,
		"status":         "scheduled",
		"member_id":      memberID,
		"preferred_time": displayTime,
		"phone_number":   phone,
		"reason":         argString(input, "reason"),
		"message": fmt.Sprintf("Your callback has been scheduled (ID: %s). An agent will call you at %s. "+
			"You'll receive a confirmation via text.", callbackID, displayTime),
	}, nil
}

// =============================================================================
// Schema and Argument Helpers
// =============================================================================

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func argString(input map[string]any, key string) string {
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}

func argBool(input map[string]any, key string) bool {
	if v, ok := input[key].(bool); ok {
		return v
	}
	return false
}
