package mcp

// ToolDescription provides enhanced descriptions for AI agents
type ToolDescription struct {
	Description string
	WhenToUse   []string
	Examples    []string
	NextTools   []string
}

var toolDescriptions = map[string]ToolDescription{
	"worktree_create": {
		Description: "Create an ephemeral git worktree on a generated branch. Inside tmux it gets its own session. Ephemeral worktrees are meant to be thrown away or promoted",
		WhenToUse: []string{
			"When you need a scratch checkout to try something without touching the current worktree",
			"Before running experiments that may leave the tree dirty",
		},
		Examples: []string{
			`worktree_create()`,
			`worktree_create(base: "origin/main", cleanup_on_close: true)`,
		},
		NextTools: []string{
			"worktree_copy - Bring uncommitted files into the new worktree",
			"worktree_promote - Keep the worktree under a real branch name",
		},
	},

	"worktree_promote": {
		Description: "Turn an ephemeral worktree into a permanent one: creates the named branch at the current commit, switches to it, renames the session and cancels pending cleanup",
		WhenToUse: []string{
			"When work in an ephemeral worktree turned out to be worth keeping",
			"Before pushing changes made in an ephemeral worktree",
		},
		Examples: []string{
			`worktree_promote(path: "/src/app.worktrees/eph-1a2b3c4d", name: "feat-login")`,
		},
		NextTools: []string{
			"worktree_list - Confirm the worktree is now named",
		},
	},

	"worktree_copy": {
		Description: "Copy files from one worktree into the worktree of another branch, preserving relative paths. Without items, modified and untracked files are copied",
		WhenToUse: []string{
			"When moving uncommitted changes to another worktree",
			"When sharing local-only files such as .env between worktrees",
		},
		Examples: []string{
			`worktree_copy(path: "/src/app", target: "feat-login")`,
			`worktree_copy(path: "/src/app", target: "feat-login", items: ".env,config/local")`,
		},
		NextTools: []string{
			"worktree_list - Find valid target branches",
		},
	},

	"worktree_list": {
		Description: "List the worktrees of the repository with their branch, lifecycle state and tmux session",
		WhenToUse: []string{
			"When looking for an ephemeral worktree to promote",
			"When choosing a copy target",
		},
		Examples: []string{
			`worktree_list()`,
		},
		NextTools: []string{
			"worktree_promote - Keep an ephemeral worktree",
			"worktree_copy - Copy files between worktrees",
		},
	},

	"exclude_add": {
		Description: "Add ignore patterns shared by every worktree of the repository (info/exclude in the common git directory). Existing patterns are not duplicated",
		WhenToUse: []string{
			"When local files should be ignored in every worktree without editing .gitignore",
		},
		Examples: []string{
			`exclude_add(patterns: ".env,*.local")`,
		},
		NextTools: []string{
			"exclude_list - Review the shared patterns",
		},
	},

	"exclude_list": {
		Description: "List the ignore patterns shared by every worktree of the repository",
		WhenToUse: []string{
			"Before adding patterns, to see what is already ignored",
		},
		Examples: []string{
			`exclude_list()`,
		},
		NextTools: []string{
			"exclude_add - Add more patterns",
		},
	},
}

// GetEnhancedDescription returns the enhanced description for a tool
func GetEnhancedDescription(toolName string) string {
	if desc, ok := toolDescriptions[toolName]; ok {
		result := desc.Description + "\n\nWHEN TO USE THIS TOOL:\n"
		for _, when := range desc.WhenToUse {
			result += "- " + when + "\n"
		}

		if len(desc.Examples) > 0 {
			result += "\nEXAMPLES:\n"
			for _, example := range desc.Examples {
				result += example + "\n"
			}
		}

		return result
	}
	return ""
}

// GetNextToolSuggestions returns suggested next tools for a given tool
func GetNextToolSuggestions(toolName string) []map[string]string {
	if desc, ok := toolDescriptions[toolName]; ok {
		suggestions := make([]map[string]string, 0, len(desc.NextTools))
		for _, next := range desc.NextTools {
			suggestions = append(suggestions, map[string]string{
				"tool": next,
			})
		}
		return suggestions
	}
	return nil
}
