package ports

// Operation names used on the wire for each Authority method.
const (
	OpRenderNode        = "renderNode"
	OpInsertNode        = "insertNode"
	OpCreateSubNode     = "createSubNode"
	OpDeleteNodes       = "deleteNodes"
	OpMoveNodes         = "moveNodes"
	OpSetNodePosition   = "setNodePosition"
	OpSplitNode         = "splitNode"
	OpSelectAllNodes    = "selectAllNodes"
	OpInsertBook        = "insertBook"
	OpInitNodeEdit      = "initNodeEdit"
	OpSaveNode          = "saveNode"
	OpSetNodeType       = "setNodeType"
	OpDeleteProperty    = "deleteProperty"
	OpGetNodePrivileges = "getNodePrivileges"
	OpAddPrivilege      = "addPrivilege"
	OpRemovePrivilege   = "removePrivilege"
	OpSetCipherKey      = "setCipherKey"
)
