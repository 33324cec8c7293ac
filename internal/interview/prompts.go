package interview

import "fmt"

func primingPrompt(resume, jobDescription string) string {
	return fmt.Sprintf(`You are an AI interviewer conducting a job interview.

Here is information about the candidate's resume:
%s

Here is the job description the candidate is applying for:
%s

Based on the resume and job description, please introduce yourself as the interviewer and ask your first question.
Keep the introduction brief and professional.`, resume, jobDescription)
}

const nextQuestionPrompt = `Based on the candidate's previous answer, please ask the next relevant interview question.
Make your questions increasingly challenging but relevant to the job description.`

const closingPrompt = `Based on our conversation so far, please conclude the interview.
Thank the candidate for their time and let them know that they will receive feedback shortly.`

const feedbackPrompt = `Based on the entire interview conversation, please provide comprehensive feedback for the candidate.
Include:
1. Overall impression
2. Strengths demonstrated
3. Areas for improvement
4. Technical skills assessment
5. Communication skills assessment
6. Fit for the role based on the job description

Format your response in markdown.`
