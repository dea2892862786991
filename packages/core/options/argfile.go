package options

// ConfigFileFlag is the name of the option an @file token expands to.
const ConfigFileFlag = "config-file"

// ExpandArgFiles rewrites @path tokens into --config-file=path tokens so
// that "testwave @mycfg file.wave" and "testwave --config-file mycfg
// file.wave" parse identically. A lone "@" is left untouched, as is
// everything after a bare "--" separator.
func ExpandArgFiles(args []string) []string {
	expanded := make([]string, 0, len(args))
	passthrough := false

	for _, arg := range args {
		if passthrough {
			expanded = append(expanded, arg)
			continue
		}
		if arg == "--" {
			passthrough = true
			expanded = append(expanded, arg)
			continue
		}
		if len(arg) > 1 && arg[0] == '@' {
			expanded = append(expanded, "--"+ConfigFileFlag+"="+arg[1:])
			continue
		}
		expanded = append(expanded, arg)
	}

	return expanded
}
