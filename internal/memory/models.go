package memory

import (
	"time"

	"github.com/josephgoksu/ideaflow/internal/project"
)

// IdeaStatus is the lifecycle state of an idea.
type IdeaStatus string

// IdeaStatus constants.
const (
	IdeaStatusActive    IdeaStatus = "active"
	IdeaStatusCompleted IdeaStatus = "completed"
	IdeaStatusArchived  IdeaStatus = "archived"
)

// Valid reports whether s is a known status.
func (s IdeaStatus) Valid() bool {
	switch s {
	case IdeaStatusActive, IdeaStatusCompleted, IdeaStatusArchived:
		return true
	default:
		return false
	}
}

// Idea is a unit of work: a voice-captured idea with its synthesized
// document, conversation, dependency graph and optional project folder.
type Idea struct {
	ID               string     `json:"id"`                       // idea-xxxxxxxx
	Title            string     `json:"title"`                    // Human-readable title
	Status           IdeaStatus `json:"status"`                   // active, completed, archived
	Synthesis        *string    `json:"synthesis,omitempty"`      // Synthesized document (nil until first synthesis)
	SynthesisVersion int        `json:"synthesisVersion"`         // Bumped on every synthesis write
	ConversationID   string     `json:"conversationId,omitempty"` // Current conversation
	ProjectPath      string     `json:"projectPath,omitempty"`    // Project root (empty until scaffolded)
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// SynthesisText returns the synthesized text, or "" when none exists.
func (i *Idea) SynthesisText() string {
	if i.Synthesis == nil {
		return ""
	}
	return *i.Synthesis
}

// Note is a captured voice or text fragment attached to an idea.
type Note struct {
	ID        string    `json:"id"`
	IdeaID    string    `json:"ideaId"`
	Content   string    `json:"content"`
	Source    string    `json:"source"` // voice, text
	CreatedAt time.Time `json:"createdAt"`
}

// Note sources.
const (
	NoteSourceVoice = "voice"
	NoteSourceText  = "text"
)

// Conversation is a chat thread with the assistant.
type Conversation struct {
	ID           string    `json:"id"`
	IdeaID       string    `json:"ideaId,omitempty"`
	Title        string    `json:"title"`
	SystemPrompt string    `json:"systemPrompt,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewConversation holds the inputs for CreateConversation.
type NewConversation struct {
	IdeaID       string
	Title        string
	SystemPrompt string
}

// Message is one turn of a conversation.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversationId"`
	Role           string    `json:"role"` // user, assistant, system
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// GraphNode is a component in an idea's dependency graph.
type GraphNode struct {
	ID          string         `json:"id"`                    // node-xxxxxxxx, preserved across restores
	IdeaID      string         `json:"ideaId"`
	Name        string         `json:"name"`
	Provider    string         `json:"provider,omitempty"`    // e.g. "Stripe", "Supabase"
	Description string         `json:"description,omitempty"`
	Pricing     map[string]any `json:"pricing,omitempty"`     // Structured pricing payload
	X           float64        `json:"x"`
	Y           float64        `json:"y"`
	Color       string         `json:"color,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// GraphEdge is a directed dependency between two nodes of the same idea.
type GraphEdge struct {
	ID               string         `json:"id"` // edge-xxxxxxxx
	IdeaID           string         `json:"ideaId"`
	SourceID         string         `json:"sourceId"`
	TargetID         string         `json:"targetId"`
	Label            string         `json:"label,omitempty"`
	TechnicalDetails map[string]any `json:"technicalDetails,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
}

// GraphState is the full graph of an idea at one point in time.
type GraphState struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Branch is one node of an idea's conversation tree. Each branch owns one
// folder under the idea's project root.
//
// Synthesis and Graph are a frozen copy of the live state taken when the
// branch was last deactivated. While the branch is active they are stale;
// the live state lives in the idea and graph tables.
type Branch struct {
	ID                  string     `json:"id"`                 // br-xxxxxxxx
	IdeaID              string     `json:"ideaId"`
	ParentID            string     `json:"parentId,omitempty"` // Empty only for the root
	ConversationID      string     `json:"conversationId,omitempty"`
	Label               string     `json:"label"`
	Depth               int        `json:"depth"` // root = 0
	FolderName          string     `json:"folderName"`
	Synthesis           *string    `json:"synthesis,omitempty"`
	Graph               GraphState `json:"graph"`
	CompactedSummary    string     `json:"compactedSummary,omitempty"`
	SummaryMessageCount int        `json:"summaryMessageCount"` // Message count the summary was computed from
	IsActive            bool       `json:"isActive"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// IsRoot reports whether b is the root of its tree.
func (b *Branch) IsRoot() bool {
	return b.ParentID == ""
}

// Snapshot is an immutable, numbered capture of an idea's text, graph and
// project files.
type Snapshot struct {
	ID        string         `json:"id"` // snap-xxxxxxxx
	IdeaID    string         `json:"ideaId"`
	BranchID  string         `json:"branchId,omitempty"` // Active branch when captured
	Version   int            `json:"version"`            // 1, 2, 3, … per idea
	Synthesis *string        `json:"synthesis,omitempty"`
	Files     []project.File `json:"files"`
	Nodes     []GraphNode    `json:"nodes"`
	Edges     []GraphEdge    `json:"edges"`
	ToolsUsed []string       `json:"toolsUsed"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Graph returns the snapshot's graph payload.
func (s *Snapshot) Graph() GraphState {
	return GraphState{Nodes: s.Nodes, Edges: s.Edges}
}

// SnapshotSummary is a lightweight listing view of a snapshot.
type SnapshotSummary struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	ToolsUsed []string  `json:"toolsUsed"`
	FileCount int       `json:"fileCount"`
	NodeCount int       `json:"nodeCount"`
	CreatedAt time.Time `json:"createdAt"`
}
