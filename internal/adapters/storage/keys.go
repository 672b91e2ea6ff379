package storage

const defaultNamespace = "crypgo"

// keys son los nombres de las dos entradas de la sesión dentro del namespace.
type keys struct {
	token string
	email string
}

func newKeys(namespace string) keys {
	if namespace == "" {
		namespace = defaultNamespace
	}
	return keys{
		token: namespace + "_auth_token",
		email: namespace + "_user_email",
	}
}
