package main

import "strings"

// Canned assistant responses used in demo mode (no chat credentials)
// and as the degradation path when the backend errors out.
var cannedResponses = map[string]string{
	"default": "I'm currently in demo mode since there's no valid Databricks token configured. In a production environment, I would analyze your clustering data and provide actionable insights. Please provide a valid Databricks token in the .env file to enable full functionality.",

	"initial": "Hello! I'm your ML Insights Assistant. Please provide information about the change you'd like to analyze. You can also use the form below to submit detailed change information for classification.",

	"infrastructure_change": "Based on the clustering analysis, I've identified a pattern where INFRAESTRUCTURA changes with duration over 72 hours have a 78% correlation with critical incidents.\n\nAction Plan:\n1. Implement a mandatory peer review for all infrastructure changes exceeding 48 hours\n2. Create automated testing scripts for common infrastructure modifications\n3. Schedule complex changes during low-traffic periods\n\nConfidence: 85% - This recommendation is based on historical patterns showing that proper review and scheduling reduces incident rates by approximately 40%.",

	"deployment_change": "The clustering model has identified that DEPLOYMENT changes across multiple environments have a 65% higher risk of causing incidents.\n\nAction Plan:\n1. Implement a staged deployment approach with validation checkpoints\n2. Create environment-specific rollback procedures\n3. Establish a 24-hour monitoring protocol after multi-environment deployments\n\nConfidence: 92% - Organizations implementing these measures have seen a 73% reduction in deployment-related incidents according to our model.",

	"security_change": "Security-related changes show a distinct cluster with high incident correlation, particularly when implemented with less than 48 hours of planning.\n\nAction Plan:\n1. Establish a minimum 72-hour planning window for all security changes\n2. Implement a dedicated security testing environment\n3. Create a security change impact assessment template\n\nConfidence: 88% - Based on cluster analysis showing that security changes with proper planning have 4.3x fewer associated incidents.",

	"infrastructure_incident": "Analysis of INFRAESTRUCTURA incidents shows a pattern where 65% of critical incidents are related to storage capacity issues and network connectivity problems.\n\nAction Plan:\n1. Implement proactive storage monitoring with alerts at 75% capacity\n2. Establish redundant network paths for critical services\n3. Create an automated incident response playbook for common infrastructure failures\n\nConfidence: 82% - Based on historical data showing these measures reduced similar incidents by 58% in comparable environments.",

	"deployment_incident": "Deployment-related incidents show a strong correlation with rushed testing phases and incomplete rollback procedures.\n\nAction Plan:\n1. Implement a mandatory 24-hour testing period for all deployments\n2. Create comprehensive pre-deployment checklists\n3. Develop automated rollback scripts for all deployment types\n\nConfidence: 91% - Organizations implementing similar measures have seen a 67% reduction in deployment incidents according to our clustering analysis.",

	"security_incident": "Security incidents cluster analysis reveals that 72% of incidents are related to outdated security patches and insufficient access controls.\n\nAction Plan:\n1. Implement an automated security patch management system\n2. Conduct monthly access control audits\n3. Develop a security incident response team with specialized training\n\nConfidence: 89% - Based on historical patterns showing these measures reduced security incidents by approximately 63% in similar environments.",
}

// CannedResponse selects a demo response by keyword matching on the
// user's message.
func CannedResponse(userInput string) string {
	lower := strings.ToLower(userInput)

	if strings.Contains(lower, "incident") && strings.Contains(lower, "change") {
		return cannedResponses["initial"]
	}
	switch lower {
	case "incident", "incidents", "about incident", "about incidents":
		return "Please provide details about the incident:\n\n1. Incident Type (e.g., INFRAESTRUCTURA, DESPLEGAMENT, SEGURETAT)?\n2. Service Information (affected service ID, Service CI)?\n3. Additional Context (incident description, priority/urgency level, impact level)?"
	case "change", "changes", "about change", "about changes":
		return "Please provide details about the change:\n\n1. Change Type (e.g., INFRAESTRUCTURA, DESPLEGAMENT, SEGURETAT)?\n2. Service Information (affected service ID, Service CI)?\n3. Additional Context (priority level, specific concerns)?"
	}

	switch {
	case strings.Contains(lower, "infrastructure") || strings.Contains(lower, "infraestructura"):
		if strings.Contains(lower, "change") {
			return cannedResponses["infrastructure_change"]
		}
		if strings.Contains(lower, "incident") {
			return cannedResponses["infrastructure_incident"]
		}
		return "Are you referring to an infrastructure incident or an infrastructure change?"
	case strings.Contains(lower, "deployment") || strings.Contains(lower, "desplegament"):
		if strings.Contains(lower, "change") {
			return cannedResponses["deployment_change"]
		}
		if strings.Contains(lower, "incident") {
			return cannedResponses["deployment_incident"]
		}
		return "Are you referring to a deployment incident or a deployment change?"
	case strings.Contains(lower, "security") || strings.Contains(lower, "seguretat"):
		if strings.Contains(lower, "change") {
			return cannedResponses["security_change"]
		}
		if strings.Contains(lower, "incident") {
			return cannedResponses["security_incident"]
		}
		return "Are you referring to a security incident or a security change?"
	}

	return cannedResponses["default"]
}
