package tool

import "strings"

// requiredFeature maps a tool name to the optional host capability it
// depends on, by the naming convention the policy file is expected to
// follow (a "container_" tool needs docker, a "blog_" tool needs the
// staging/publish directories). Tools outside these families have no
// feature dependency.
func requiredFeature(toolName string) (string, bool) {
	switch {
	case strings.HasPrefix(toolName, "container_"):
		return "docker", true
	case strings.HasPrefix(toolName, "blog_"):
		return "blog_directories", true
	default:
		return "", false
	}
}
