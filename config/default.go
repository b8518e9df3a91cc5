package config

// DefaultValues is the default configuration
const DefaultValues = `
[Log]
Environment = "development"
Level = "debug"
Outputs = ["stdout"]

[Database]
User = "test_user"
Password = "test_password"
Name = "test_db"
Host = "disbursal-db"
Port = "5432"
MaxConns = 20

[Etherman]
URL = "http://localhost:8545"
PrivateKey = ""
TxTimeout = "2m"

[Admin]
AllowRootOverride = false
APISecret = ""

[Server]
Port = "8080"
ReadTimeoutSec = 60
WriteTimeoutSec = 60
AllowedOrigins = []

[Metrics]
Enabled = false
Port = "9091"
Endpoint = "/metrics"
`
