package domain

// KeyPrefix namespaces every key khoj writes to the key-value store.
const KeyPrefix = "khoj:"
