package session

// Command ids recognized by the external workflow's tool router.
const (
	ToolGenerateImage = "generate-image"
	ToolGenerateAudio = "generate-audio"
	ToolEditImage     = "edit-image"
)

// ToolDisplayName maps a command id to its menu label. Unknown ids are shown
// as-is so a workflow-side addition still renders something usable.
func ToolDisplayName(command string) string {
	switch command {
	case ToolGenerateImage:
		return "Generate Image"
	case ToolGenerateAudio:
		return "Generate Audio"
	case ToolEditImage:
		return "Edit Image"
	}
	return command
}
