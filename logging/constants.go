package logging

// These constants are used to identify the various services that may do some logging
const (
	// FRONTEND_SERVICE is the constant used to identify the frontend package
	FRONTEND_SERVICE = "frontend"
	// FUZZING_SERVICE is the constant used to identify the fuzzing package
	FUZZING_SERVICE = "fuzzing"
	// CORPUS_SERVICE is the constant used to identify the corpus package
	CORPUS_SERVICE = "corpus"
)
