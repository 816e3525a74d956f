package ports

import (
	"context"

	"arbor/internal/domain"
)

// Authority is the remote node service. Every method is a blocking
// request/response call: a non-nil error means the request did not
// complete, a returned response still has to pass its success check.
type Authority interface {
	RenderNode(ctx context.Context, req RenderNodeRequest) (*RenderNodeResponse, error)

	// Tree mutations
	InsertNode(ctx context.Context, req InsertNodeRequest) (*InsertNodeResponse, error)
	CreateSubNode(ctx context.Context, req CreateSubNodeRequest) (*CreateSubNodeResponse, error)
	DeleteNodes(ctx context.Context, req DeleteNodesRequest) (*Ack, error)
	MoveNodes(ctx context.Context, req MoveNodesRequest) (*Ack, error)
	SetNodePosition(ctx context.Context, req SetNodePositionRequest) (*Ack, error)
	SplitNode(ctx context.Context, req SplitNodeRequest) (*Ack, error)
	SelectAllNodes(ctx context.Context, req SelectAllNodesRequest) (*SelectAllNodesResponse, error)
	InsertBook(ctx context.Context, req InsertBookRequest) (*InsertBookResponse, error)

	// Editing
	InitNodeEdit(ctx context.Context, req InitNodeEditRequest) (*InitNodeEditResponse, error)
	SaveNode(ctx context.Context, req SaveNodeRequest) (*SaveNodeResponse, error)
	SetNodeType(ctx context.Context, req SetNodeTypeRequest) (*Ack, error)
	DeleteProperty(ctx context.Context, req DeletePropertyRequest) (*Ack, error)

	// Access control
	GetNodePrivileges(ctx context.Context, req GetNodePrivilegesRequest) (*GetNodePrivilegesResponse, error)
	AddPrivilege(ctx context.Context, req AddPrivilegeRequest) (*Ack, error)
	RemovePrivilege(ctx context.Context, req RemovePrivilegeRequest) (*Ack, error)
	SetCipherKey(ctx context.Context, req SetCipherKeyRequest) (*Ack, error)
}

// ExceptionAuth marks a response rejected for lack of authorization.
const ExceptionAuth = "auth"

// ResponseBase is carried by every authority response.
type ResponseBase struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	ExceptionType string `json:"exceptionType,omitempty"`
}

// Ack is the response of operations that return nothing but success.
type Ack struct {
	ResponseBase
}

// Move locations relative to the paste target.
const (
	LocationInside      = "inside"
	LocationInline      = "inline"
	LocationInlineAbove = "inline-above"
)

// Reorder directions.
const (
	PositionUp     = "up"
	PositionDown   = "down"
	PositionTop    = "top"
	PositionBottom = "bottom"
)

// Split modes.
const (
	SplitInline   = "inline"
	SplitChildren = "children"
)

type RenderNodeRequest struct {
	NodeID string `json:"nodeId"`
}

type RenderNodeResponse struct {
	ResponseBase
	Node     *domain.Node   `json:"node,omitempty"`
	Children []*domain.Node `json:"children,omitempty"`
}

type InsertNodeRequest struct {
	ParentID      string `json:"parentId"`
	TargetOrdinal int    `json:"targetOrdinal"`
	NewNodeName   string `json:"newNodeName"`
	TypeName      string `json:"typeName"`
}

type InsertNodeResponse struct {
	ResponseBase
	NewNode *domain.Node `json:"newNode,omitempty"`
}

type CreateSubNodeRequest struct {
	NodeID      string `json:"nodeId"`
	NewNodeName string `json:"newNodeName"`
	TypeName    string `json:"typeName"`
	CreateAtTop bool   `json:"createAtTop"`
	Content     string `json:"content,omitempty"`
}

type CreateSubNodeResponse struct {
	ResponseBase
	NewNode *domain.Node `json:"newNode,omitempty"`
}

type InitNodeEditRequest struct {
	NodeID string `json:"nodeId"`
}

type InitNodeEditResponse struct {
	ResponseBase
	NodeInfo *domain.Node `json:"nodeInfo,omitempty"`
}

type SaveNodeRequest struct {
	Node *domain.Node `json:"node"`
}

type SaveNodeResponse struct {
	ResponseBase
	Node       *domain.Node                `json:"node,omitempty"`
	AclEntries []domain.AccessControlEntry `json:"aclEntries,omitempty"`
}

type DeleteNodesRequest struct {
	NodeIDs    []string `json:"nodeIds"`
	HardDelete bool     `json:"hardDelete"`
}

type MoveNodesRequest struct {
	TargetNodeID string   `json:"targetNodeId"`
	NodeIDs      []string `json:"nodeIds"`
	Location     string   `json:"location"`
}

type SetNodePositionRequest struct {
	NodeID     string `json:"nodeId"`
	TargetName string `json:"targetName"`
}

type SetNodeTypeRequest struct {
	NodeID string `json:"nodeId"`
	Type   string `json:"type"`
}

type DeletePropertyRequest struct {
	NodeID   string `json:"nodeId"`
	PropName string `json:"propName"`
}

type SplitNodeRequest struct {
	NodeID    string `json:"nodeId"`
	SplitType string `json:"splitType"`
	Delimiter string `json:"delimiter"`
}

type GetNodePrivilegesRequest struct {
	NodeID        string `json:"nodeId"`
	IncludeACL    bool   `json:"includeAcl"`
	IncludeOwners bool   `json:"includeOwners"`
}

type GetNodePrivilegesResponse struct {
	ResponseBase
	AclEntries []domain.AccessControlEntry `json:"aclEntries,omitempty"`
	Owners     []string                    `json:"owners,omitempty"`
}

type AddPrivilegeRequest struct {
	NodeID     string             `json:"nodeId"`
	Principal  string             `json:"principal"`
	Privileges []domain.Privilege `json:"privileges"`
}

type RemovePrivilegeRequest struct {
	NodeID          string           `json:"nodeId"`
	PrincipalNodeID string           `json:"principalNodeId"`
	Privilege       domain.Privilege `json:"privilege"`
}

type SelectAllNodesRequest struct {
	ParentNodeID string `json:"parentNodeId"`
}

type SelectAllNodesResponse struct {
	ResponseBase
	NodeIDs []string `json:"nodeIds,omitempty"`
}

type InsertBookRequest struct {
	NodeID    string `json:"nodeId"`
	BookName  string `json:"bookName"`
	Truncated bool   `json:"truncated"`
}

type InsertBookResponse struct {
	ResponseBase
	NewNode *domain.Node `json:"newNode,omitempty"`
}

type SetCipherKeyRequest struct {
	NodeID          string `json:"nodeId"`
	PrincipalNodeID string `json:"principalNodeId"`
	CipherKey       string `json:"cipherKey"`
}

// Pseudo node ids understood by the authority.
const (
	// TrashNodeID addresses every soft-deleted node of the requester.
	TrashNodeID = "~trash"
	// NotesNodeID addresses the requester's notes node, created on demand.
	NotesNodeID = "~notes"
	// HomeNodeID addresses the requester's account home in RenderNode;
	// anonymous requesters get the repository root.
	HomeNodeID = "~home"
)
