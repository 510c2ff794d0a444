package application

// Application is one registry entry. AppName identifies the record within the
// collection and is the key for every lookup.
type Application struct {
	AppName string `json:"appName"`
	AppData Data   `json:"appData"`
}

// Data holds the mutable and immutable attributes of an application. AppPath
// is never changed through the update contract.
type Data struct {
	AppPath  string `json:"appPath"`
	AppOwner string `json:"appOwner"`
	IsValid  bool   `json:"isValid"`
}

// Clone returns a copy of the collection so callers can mutate it freely.
func Clone(apps []Application) []Application {
	if apps == nil {
		return []Application{}
	}
	out := make([]Application, len(apps))
	copy(out, apps)
	return out
}

// IndexOf returns the position of the first record whose name equals name
// exactly, or -1.
func IndexOf(apps []Application, name string) int {
	for i := range apps {
		if apps[i].AppName == name {
			return i
		}
	}
	return -1
}
