package providers

import (
	_ "github.com/VyshnaviVunnamatla/DualAgents-AB/src/ai/anthropic"
	_ "github.com/VyshnaviVunnamatla/DualAgents-AB/src/ai/openai"
)
