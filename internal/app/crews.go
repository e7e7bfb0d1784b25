package app

import (
	"fmt"

	"github.com/hyperifyio/agentcrew/internal/crew"
	"github.com/hyperifyio/agentcrew/internal/llmtools"
)

// Research crew personas. Every request builds fresh values.

func researcherAgent() *crew.Agent {
	return &crew.Agent{
		Role:            "Researcher",
		Goal:            "Research new AI insights",
		Backstory:       "You are an AI research assistant, you provide assistance in research, providing them with insights",
		AllowDelegation: true,
	}
}

func generalAgent() *crew.Agent {
	return &crew.Agent{
		Role:            "General Assistant",
		Goal:            "Provide assistance in general tasks",
		Backstory:       "You are a general assistant, capable of handling a variety of tasks",
		Tools:           []string{llmtools.ToolFetchUserProfile, llmtools.ToolGenerateImages},
		AllowDelegation: true,
	}
}

func youtubeAgent() *crew.Agent {
	return &crew.Agent{
		Role:            "Youtube Assistant",
		Goal:            "Summarize or explain a youtube video",
		Backstory:       "You are a youtube assistant, that get the transcript and then assists the user in understanding the video",
		Tools:           []string{llmtools.ToolYouTubeTranscript},
		AllowDelegation: true,
	}
}

// NewResearchCrew builds the crew behind POST /agents: one task for the
// Researcher, with the General and YouTube assistants as coworkers.
func (a *App) NewResearchCrew(task string) *crew.Crew {
	researcher := researcherAgent()
	c := a.baseCrew()
	c.Agents = []*crew.Agent{researcher, generalAgent(), youtubeAgent()}
	c.Tasks = []*crew.Task{{Description: task, Agent: researcher}}
	return c
}

// NewSEOCrew builds the crew behind POST /seo_analysis: the HTML agent
// extracts the page and the SEO agent analyses that output.
func (a *App) NewSEOCrew(websiteURL string) *crew.Crew {
	htmlAgent := &crew.Agent{
		Role:      "HTML Source Code Agent",
		Goal:      "Retrieve HTML source code from the given website URL and process its contents.",
		Backstory: "Expert in retrieving HTML source code from websites and processing its contents.",
		Tools:     []string{llmtools.ToolRetrieveHTMLSource},
	}
	seoAgent := &crew.Agent{
		Role:      "SEO Agent",
		Goal:      "Performs a complete SEO analysis on the given website and provides tailor-made indepth and actionable insights and suggestions by analyzing the HTML source code and the processed data from the website.",
		Backstory: "An SEO specialist providing comprehensive insights and suggestions by analyzing the provided HTML source code and the processed data from the website.",
	}
	htmlTask := &crew.Task{
		Description: fmt.Sprintf("Retrieve HTML source code from the given website URL, %s.", websiteURL),
		Agent:       htmlAgent,
		Tools:       []string{llmtools.ToolRetrieveHTMLSource},
	}
	seoTask := &crew.Task{
		Description: seoTaskDescription,
		Agent:       seoAgent,
		Context:     []*crew.Task{htmlTask},
	}
	if _, ok := a.toolbox.Get(llmtools.ToolWebSearch); ok {
		seoTask.Tools = []string{llmtools.ToolWebSearch}
	}
	c := a.baseCrew()
	c.Agents = []*crew.Agent{htmlAgent, seoAgent}
	c.Tasks = []*crew.Task{htmlTask, seoTask}
	return c
}

func (a *App) baseCrew() *crew.Crew {
	return &crew.Crew{
		Process:        crew.Sequential,
		Client:         a.chat,
		Tools:          a.toolbox,
		Model:          a.cfg.LLMModel,
		MaxToolCalls:   a.cfg.ToolsMaxCalls,
		MaxWallClock:   a.cfg.ToolsMaxWallClock,
		PerToolTimeout: a.cfg.ToolsPerToolTimeout,
	}
}

const seoTaskDescription = `
Perform a complete SEO analysis on the given website. Brainstorm relevant keywords related to the website's content. Optimize title tags, meta descriptions, and heading tags (H1, H2, etc.).
Check for SEO-friendly URLs. If images are present then optimize image alt tags. Ensure the content is high-quality, informative, and relevant to the target keywords. Suggest engaging and
valuable content that can be used to modify the current content of the website, This is very important, make sure to provide it without failure.
Finally, Make sure without fail to provide an indepth suggestion and insights to improve the SEO of the website. It should be very detailed and actionable. Do not provide a general advice give insights tailor-made to the website.

Refer the following as example, this is how your final answer should look like:
1 Keywords Analysis
- Primary Keyword: Virtual Classrooms
- Secondary Keywords: Future of Education, Technological Advancements in Education, Online Learning, Adaptive Learning Platforms, Environmental Sustainability in Education, Pandemic Preparedness in Education, Cost-Effective Learning, Global Collaboration in Education
- Suggested Keywords: remote learning, E-Learning Solutions, Virtual Schooling
- Rationale: Including new keywords that aligns with the content of the website will help in boosting the website's visibility.

2 Title Tag Optimization
- Current Title Tag: "The Future of Education: Embracing Virtual Classrooms - AKRATECH"
- Suggested Title Tag: "Embracing Virtual Classrooms: The Future of Education | AKRATECH"
- Rationale: Placing the primary keyword at the beginning of the title can improve its visibility and relevance to search queries related to virtual classrooms. Including the brand name at the end helps in brand recognition.

3 Meta Description Creation
- Current Meta Description: No meta description is available.
- Suggested Meta Description: Explore how Virtual Classrooms are shaping the Future of Education with AKRATECH. Discover the benefits of online learning, from environmental sustainability to global collaboration.
- Rationale: Despite the meta description not being available, crafting one that includes primary and secondary keywords while summarizing the content's essence can improve click-through rates from search engine results pages (SERPs).

4 Header Tags Optimization
- H1: Ensure that H1 tags are used for the main title - which should include the primary keyword. Only use one H1 tag per page.
- H2: Use H2 tags for main sections. Suggestions include:
- "The Rise of Virtual Classrooms in Modern Education"
- "Technological Advancements: Making Online Learning More Effective"
- "Global Collaboration and Adaptive Learning Platforms"
- H3: Use H3 tags for sub-sections within the H2-tagged areas for more detailed topics like "Cost-Effectiveness", "Environmental Sustainability", and "Pandemic Preparedness".

5 SEO-friendly URLs
- Current URL: "https://www.akratech.com/the-future-of-education-embracing-virtual-classrooms/"
- Suggested URL: "https://www.akratech.com/virtual-classrooms-future-education"
- Rationale: Shorter URLs that contain the primary keyword enhance readability and SEO.

6 Image Alt Tags Optimization
- Ensure all images related to the content have descriptive alt tags that include keywords where relevant. For example, an image discussing technological advancements could have an alt tag like "innovative-tech-for-online-learning".

7 Content Suggestions
- The current content seems to cover a wide array of topics relevant to virtual classrooms. To further enhance it:
- Include case studies or real-world examples of successful virtual classroom implementations.
- Add statistics to back up claims about cost-effectiveness, environmental sustainability, etc.
- Incorporate quotes from educators and students who have experienced the transition to virtual classrooms.
- Blog posts or guides on how educators can transition from traditional to virtual classrooms.
- Webinars featuring experts discussing the future of education and the role of technology.
- Interactive infographics detailing the benefits and challenges of virtual classrooms.

8 Content Improvement
- Current Content from the website: The future of education is being increasingly shaped by Virtual classrooms, owing to a multitude of factors. From accessibility to technological advancements virtual classrooms are going to play a huge role in shaping the future.
- Suggested Content: The trajectory of education is swiftly pivoting towards virtual classrooms, driven by a myriad of factors. Ranging from enhanced accessibility to the rapid progression of technology, virtual classrooms are poised to profoundly influence the future educational landscape.

- Current Content from the website: Virtual classrooms eliminate the need for physical infrastructure, reducing costs associated with building and maintaining traditional classrooms.
- Suggested Content: Virtual classrooms obviate the necessity for physical infrastructure, thereby alleviating the financial burden associated with constructing and upkeeping traditional classroom spaces.

- Rationale: The revised line aims to enhance clarity, conciseness, and sophistication while maintaining the original message

9 Additional Suggestions
- Internal Linking: Strengthen the website's SEO by increasing internal linking between this page and other relevant pages/articles on the AKRATECH website. This helps in distributing page authority and keeping users engaged.
- External Links: Ensure all external links open in a new tab to keep users on the AKRATECH site. Also, periodically check that all external links are still valid and relevant.
- Mobile Optimization: Verify that the webpage is fully optimized for mobile devices, as Google predominantly uses mobile-first indexing.
- Content Freshness: Regularly update the content to include the latest trends, data, and relevant news related to virtual classrooms and education technology.
- User Engagement: Incorporate elements that increase user engagement, such as comments, polls, or social media share buttons that are more prominently displayed.
`
