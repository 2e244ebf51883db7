package ir

// RegistrarVersion is the registrar release version.
const RegistrarVersion = "0.1.0"
