package provisioner

import (
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/ai-stack-deploy/engine/pkg/logger"
)

// defaultComposeKey is the manifest used when a template's compose key is
// unrecognized. The fallback is logged rather than rejected; see the
// catalog's tier fallback for the same policy.
const defaultComposeKey = "ollama-webui"

var composeManifests = map[string]string{
	"ollama-webui": `version: '3.8'
services:
  ollama:
    image: ollama/ollama:latest
    ports:
      - "11434:11434"
    volumes:
      - ollama:/root/.ollama
    restart: unless-stopped
    environment:
      - OLLAMA_HOST=0.0.0.0

  webui:
    image: ghcr.io/open-webui/open-webui:main
    ports:
      - "3000:8080"
    environment:
      - OLLAMA_BASE_URL=http://ollama:11434
    restart: unless-stopped
    depends_on:
      - ollama

volumes:
  ollama:
`,
	"rag-app": `version: '3.8'
services:
  chromadb:
    image: ghcr.io/chroma-core/chroma:latest
    ports:
      - "8000:8000"
    volumes:
      - chroma:/chroma/chroma
    restart: unless-stopped

  rag-app:
    image: python:3.11-slim
    ports:
      - "8501:8501"
    environment:
      - CHROMA_HOST=chromadb
      - CHROMA_PORT=8000
    restart: unless-stopped
    depends_on:
      - chromadb
    command: >
      bash -c "pip install streamlit chromadb openai &&
               echo 'import streamlit as st; st.title(\"RAG Document Chat\")' > app.py &&
               streamlit run app.py --server.address 0.0.0.0 --server.port 8501"

volumes:
  chroma:
`,
	"ai-agent": `version: '3.8'
services:
  redis:
    image: redis:alpine
    restart: unless-stopped
    command: redis-server --appendonly yes
    volumes:
      - redis_data:/data

  agent:
    image: python:3.11-slim
    ports:
      - "8000:8000"
    environment:
      - REDIS_URL=redis://redis:6379
    restart: unless-stopped
    depends_on:
      - redis
    command: >
      bash -c "pip install fastapi uvicorn redis &&
               uvicorn main:app --host 0.0.0.0 --port 8000"

volumes:
  redis_data:
`,
}

var cloudInitTmpl = template.Must(template.New("cloud-init").Parse(`#!/bin/bash
# Update system
apt-get update && apt-get upgrade -y

# Install docker-compose
curl -L "https://github.com/docker/compose/releases/download/1.29.2/docker-compose-$(uname -s)-$(uname -m)" -o /usr/local/bin/docker-compose
chmod +x /usr/local/bin/docker-compose

# Create app directory
mkdir -p /app
cd /app

cat > docker-compose.yml << 'EOF'
{{.Compose}}EOF

# Start the stack
docker-compose up -d

# Setup monitoring
cat > /etc/cron.d/ai-stack-monitor << 'EOF'
*/5 * * * * root cd /app && docker-compose ps >> /var/log/stack-status.log
EOF
`))

// RenderCloudInit produces the droplet user-data script embedding the compose
// manifest for the given key. Unknown keys fall back to the default manifest
// with a logged warning.
func RenderCloudInit(composeKey string) string {
	manifest, ok := composeManifests[composeKey]
	if !ok {
		logger.L().Warn("unknown compose key, using default manifest",
			zap.String("compose_key", composeKey),
			zap.String("default", defaultComposeKey),
		)
		manifest = composeManifests[defaultComposeKey]
	}

	var b strings.Builder
	// The template only fails on a non-writable destination, which a
	// strings.Builder never is.
	_ = cloudInitTmpl.Execute(&b, struct{ Compose string }{Compose: manifest})
	return b.String()
}
