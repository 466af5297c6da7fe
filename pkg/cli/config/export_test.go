package config

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(clientID, clientSecret, signingSecret string) *Slack {
	return &Slack{
		clientID:      clientID,
		clientSecret:  clientSecret,
		signingSecret: signingSecret,
	}
}

// NewCipherForTest creates a Cipher config for testing purposes
func NewCipherForTest(cryptokey, kdf string) *Cipher {
	return &Cipher{
		cryptokey: cryptokey,
		kdf:       kdf,
	}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, leveldbPath string) *Repository {
	return &Repository{
		backend:     backend,
		leveldbPath: leveldbPath,
	}
}

// NewServerForTest creates a Server config for testing purposes
func NewServerForTest(baseURL, tlsCert, tlsKey string) *Server {
	return &Server{
		baseURL: baseURL,
		tlsCert: tlsCert,
		tlsKey:  tlsKey,
	}
}

// NewFileForTest creates a File config for testing purposes
func NewFileForTest(path string) *File {
	return &File{path: path}
}
