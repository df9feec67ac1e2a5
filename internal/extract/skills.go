package extract

// knownSkills is the dictionary searched for in resume text.
var knownSkills = []string{
	// languages
	"python", "java", "javascript", "typescript", "c++", "c#", "ruby", "php", "swift", "kotlin",
	"go", "golang", "rust", "scala", "matlab", "perl", "shell", "bash", "powershell",
	// web
	"html", "css", "react", "angular", "vue", "node.js", "express", "django", "flask",
	"spring", "asp.net", "jquery", "bootstrap", "tailwind", "sass", "webpack", "next.js",
	// databases
	"sql", "mysql", "postgresql", "postgres", "mongodb", "redis", "cassandra", "oracle", "sqlite",
	"dynamodb", "elasticsearch", "neo4j", "mariadb",
	// cloud and ops
	"aws", "azure", "gcp", "docker", "kubernetes", "jenkins", "gitlab", "github actions",
	"terraform", "ansible", "ci/cd", "devops", "linux", "unix", "nginx", "apache",
	// data
	"machine learning", "deep learning", "tensorflow", "pytorch", "scikit-learn", "keras",
	"pandas", "numpy", "matplotlib", "seaborn", "nlp", "computer vision", "data analysis",
	"data science", "statistics", "big data", "hadoop", "spark", "tableau", "power bi",
	// mobile
	"android", "ios", "react native", "flutter", "xamarin", "mobile development",
	// practices
	"git", "api", "rest", "graphql", "microservices", "agile", "scrum", "jira",
	"testing", "unit testing", "selenium", "jest", "pytest", "tdd", "oop",
	"data structures", "algorithms", "system design", "networking", "security",
	"blockchain", "iot", "embedded systems",
	// soft
	"communication", "leadership", "teamwork", "problem solving", "critical thinking",
	"time management", "project management", "analytical", "collaboration",
	"presentation", "negotiation", "mentoring", "strategic thinking",
	// domain
	"finance", "healthcare", "retail", "e-commerce", "marketing", "sales",
	"accounting", "logistics", "supply chain",
	// abbreviations resolved by the skill normalizer
	"js", "ts", "k8s", "ml", "dl",
}
