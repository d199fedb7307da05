package config

const (
	defaultBinDir              = "bins"
	defaultItemsPath           = ".beads/issues.jsonl"
	defaultIDField             = "id"
	defaultAttributeField      = "path"
	defaultCategoryField       = "issue_type"
	defaultStatusField         = "status"
	defaultCapacity            = 25
	defaultOverflowBase        = 1
	defaultSuffixAlphabet      = "abcdefghijklmnopqrstuvwxyz"
	defaultDocumentFormat      = "json"
	defaultRootConfigGroup     = "root-config"
	defaultCrossCuttingGroup   = "cross-cutting"
	defaultJournalEnabled      = true
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	documentFormatJSON         = "json"
	documentFormatYAML         = "yaml"
	groupNamePlaceholder       = "{group}"
	maxSuffixAlphabetLength    = 64
	defaultExcludedCategory    = "epic"
	defaultTerminalResolved    = "resolved"
	defaultTerminalClosed      = "closed"
	defaultTerminalRejected    = "rejected"
	defaultOverflowFocusPrefix = "Overflow: "
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			BinDir:    defaultBinDir,
			ItemsPath: defaultItemsPath,
			StateDir:  defaultStateDir(),
		},
		Backlog: Backlog{
			IDField:            defaultIDField,
			AttributeField:     defaultAttributeField,
			CategoryField:      defaultCategoryField,
			StatusField:        defaultStatusField,
			ExcludedCategories: []string{defaultExcludedCategory},
			TerminalStatuses:   []string{defaultTerminalResolved, defaultTerminalClosed, defaultTerminalRejected},
		},
		Placement: Placement{
			Capacity:            defaultCapacity,
			DefaultOverflowBase: defaultOverflowBase,
			SuffixAlphabet:      defaultSuffixAlphabet,
			DocumentFormat:      defaultDocumentFormat,
		},
		Classifier: Classifier{
			RootConfigGroup:   defaultRootConfigGroup,
			CrossCuttingGroup: defaultCrossCuttingGroup,
		},
		Journal: Journal{
			Enabled: defaultJournalEnabled,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// OverflowFocus returns the focus label given to synthesized bins of a group
// that does not declare one.
func OverflowFocus(group string) string {
	return defaultOverflowFocusPrefix + group
}
