package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/temirov/impromptu/internal/config"
)

const (
	switchFlagTypeName           = "bool"
	switchFlagTrueLiteral        = "true"
	switchFlagFalseLiteral       = "false"
	switchFlagAcceptedLiterals   = "true, false, yes, no, on, off, 1, 0"
	invalidSwitchFlagValueFormat = "invalid value %q for --%s; accepted values: %s"
	normalizedSwitchFlagFormat   = "--%s=%t"
	longFlagPrefix               = "--"
	flagValueSeparator           = "="
)

var switchFlagLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"0":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

// switchFlagsByCommand lists the on/off flags of each command. Only these flags
// consume a following boolean literal as their value.
var switchFlagsByCommand = map[string][]string{
	initUse:       {globalFlagName, forceFlagName},
	generateUse:   {treeFlagName, copyFlagName},
	generateAlias: {treeFlagName, copyFlagName},
}

// valueFlagNames take their value as the next argument, which is never a command name.
var valueFlagNames = map[string]struct{}{
	rootFlagName:           {},
	configFlagName:         {},
	stateDirectoryFlagName: {},
	suffixFlagName:         {},
	addressFlagName:        {},
}

// switchFlag is an on/off flag that remembers whether it was given, so an absent
// flag falls back to the configuration file.
type switchFlag struct {
	name  string
	value *bool
}

func parseSwitchLiteral(input string) (bool, bool) {
	parsed, known := switchFlagLiterals[strings.ToLower(strings.TrimSpace(input))]
	return parsed, known
}

func (flag *switchFlag) Set(input string) error {
	parsed, known := parseSwitchLiteral(input)
	if strings.TrimSpace(input) == "" {
		parsed, known = true, true
	}
	if !known {
		return fmt.Errorf(invalidSwitchFlagValueFormat, input, flag.name, switchFlagAcceptedLiterals)
	}
	flag.value = &parsed
	return nil
}

func (flag *switchFlag) String() string {
	if flag == nil || flag.value == nil {
		return switchFlagFalseLiteral
	}
	return strconv.FormatBool(*flag.value)
}

func (flag *switchFlag) Type() string {
	return switchFlagTypeName
}

// Resolve returns the command-line value when the flag was given, then the configured
// value, then false.
func (flag *switchFlag) Resolve(configured *bool) bool {
	if flag.value != nil {
		return *flag.value
	}
	return config.BoolOrDefault(configured, false)
}

func registerSwitchFlag(flagSet *pflag.FlagSet, name string, usage string) *switchFlag {
	flag := &switchFlag{name: name}
	flagSet.Var(flag, name, usage)
	if lookup := flagSet.Lookup(name); lookup != nil {
		lookup.DefValue = switchFlagFalseLiteral
		lookup.NoOptDefVal = switchFlagTrueLiteral
	}
	return flag
}

// normalizeSwitchFlagArguments rewrites "--tree yes" into "--tree=true" for the switch
// flags of the command being invoked. Everything after "--" is left untouched.
func normalizeSwitchFlagArguments(arguments []string) []string {
	normalized := make([]string, 0, len(arguments))
	var switchNames []string
	commandSeen := false
	for index := 0; index < len(arguments); index++ {
		current := arguments[index]
		if current == longFlagPrefix {
			return append(normalized, arguments[index:]...)
		}
		flagName, isLongFlag := strings.CutPrefix(current, longFlagPrefix)
		hasNext := index+1 < len(arguments)
		switch {
		case isLongFlag && strings.Contains(flagName, flagValueSeparator):
		case isLongFlag && hasNext && containsFlagName(switchNames, flagName):
			if parsed, known := parseSwitchLiteral(arguments[index+1]); known {
				normalized = append(normalized, fmt.Sprintf(normalizedSwitchFlagFormat, flagName, parsed))
				index++
				continue
			}
		case isLongFlag && hasNext:
			if _, takesValue := valueFlagNames[flagName]; takesValue {
				normalized = append(normalized, current, arguments[index+1])
				index++
				continue
			}
		case !commandSeen && !strings.HasPrefix(current, "-"):
			commandSeen = true
			switchNames = switchFlagsByCommand[current]
		}
		normalized = append(normalized, current)
	}
	return normalized
}

func containsFlagName(names []string, name string) bool {
	for _, candidate := range names {
		if candidate == name {
			return true
		}
	}
	return false
}
