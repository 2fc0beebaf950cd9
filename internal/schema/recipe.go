package schema

// BuildRecipe describes how the API runtime image is produced: a pinned base
// runtime, a dependency layer installed before the source layer, a non-root
// execution identity and a startup command that resolves its bind port from
// the environment at launch time.
type BuildRecipe struct {
	BaseImage          string       `json:"baseImage"`
	BuildEnv           []EnvSetting `json:"buildEnv,omitempty"`
	Workdir            string       `json:"workdir,omitempty"`
	DependencyManifest string       `json:"dependencyManifest"`
	InstallCommand     string       `json:"installCommand"`
	User               string       `json:"user,omitempty"`
	ExposedPort        int          `json:"exposedPort"`
	PortVariable       string       `json:"portVariable"`
	DefaultPort        int          `json:"defaultPort"`
	Command            string       `json:"command"`
}

// EnvSetting is one build-time environment assignment, order-preserving
type EnvSetting struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
