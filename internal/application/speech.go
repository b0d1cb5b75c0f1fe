package application

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"particle-skill/internal/domain"
)

const (
	msgWelcome        = "Welcome to Particle. You can ask me how many devices are online, list their functions and variables, call a function or read a variable."
	msgHelp           = "You can say: list my devices, list the functions of a device, call a function on a device, or set my active device. What would you like to do?"
	msgHelpReprompt   = "What would you like to do?"
	msgGoodbye        = "Goodbye!"
	msgFallback       = "Sorry, I don't know how to do that. You can ask me for help."
	msgLinkAccount    = "Please link your Particle account in the Alexa app so I can reach your devices."
	msgNoDevice       = "Please provide a device name or set an active device."
	msgWhichDevice    = "Which device would you like to use?"
	msgWhichFunction  = "Which function would you like me to call?"
	msgWhichVariable  = "Which variable would you like me to read?"
	msgNoActiveDevice = "You haven't set an active device yet."

	msgDeviceNotFound   = "Sorry, I couldn't find a device by that name."
	msgFunctionNotFound = "Sorry, that device doesn't have a function by that name."
	msgVariableNotFound = "Sorry, that device doesn't have a variable by that name."
	msgGenericFailure   = "Sorry, I couldn't get what you wanted. Please try again."
)

// SayList joins items for speech: "a", "a and b", "a, b and c".
func SayList(items []string, penultimate string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " " + penultimate + " " + items[len(items)-1]
}

func sayDeviceCount(n int) string {
	switch n {
	case 0:
		return "There are no devices online at the moment."
	case 1:
		return "There is 1 device online at the moment."
	default:
		return fmt.Sprintf("There are %d devices online at the moment.", n)
	}
}

func sayDeviceList(devices []domain.DeviceSummary) string {
	switch len(devices) {
	case 0:
		return "You have no devices online at the moment."
	case 1:
		return fmt.Sprintf("You have one device online, named %s.", domain.NormalizeDeviceName(devices[0].Name))
	}

	names := make([]string, 0, len(devices))
	for _, d := range devices {
		names = append(names, domain.NormalizeDeviceName(d.Name))
	}
	return fmt.Sprintf("You have %d devices online. Their names are %s.", len(devices), SayList(names, "and"))
}

func sayFunctions(device string, functions []string) string {
	if len(functions) == 0 {
		return fmt.Sprintf("The device named %s has no functions.", device)
	}
	return fmt.Sprintf("Here are the functions for the device named %s: %s.", device, SayList(spokenNames(functions), "and"))
}

func sayVariables(device string, variables map[string]string) string {
	if len(variables) == 0 {
		return fmt.Sprintf("The device named %s has no variables.", device)
	}
	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("Here are the variables for the device named %s: %s.", device, SayList(spokenNames(names), "and"))
}

func sayFunctionResult(device, fn string, result int) string {
	return fmt.Sprintf("I called %s on %s. It returned %d.", domain.SpokenName(fn), device, result)
}

func sayVariable(device string, v *domain.Variable) string {
	return fmt.Sprintf("The value of %s on %s is %s.", domain.SpokenName(v.Name), device, sayValue(v.Value))
}

func sayStatus(device string, connected bool) string {
	if connected {
		return fmt.Sprintf("%s is online.", device)
	}
	return fmt.Sprintf("%s is offline.", device)
}

func sayValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "empty"
	case string:
		if val == "" {
			return "empty"
		}
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func spokenNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = domain.SpokenName(n)
	}
	return out
}
